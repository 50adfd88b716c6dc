package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

var subtitleExtensions = map[string]bool{".srt": true, ".vtt": true, ".ass": true, ".ssa": true}

var mediaExtensions = map[string]bool{
	".wav": true, ".flac": true, ".mp3": true, ".m4a": true, ".aac": true, ".ogg": true, ".opus": true,
	".mka": true, ".mkv": true, ".mp4": true, ".m4v": true, ".avi": true, ".webm": true, ".mov": true, ".ts": true,
}

func hasExtension(set map[string]bool) func(name string) bool {
	return func(name string) bool {
		return set[strings.ToLower(filepath.Ext(name))]
	}
}

func getOutputPath(input string, suffix string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix + ".wav"
}

func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entr := range entries {
		if entr.IsDir() || strings.HasPrefix(entr.Name(), ".") || !keep(entr.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entr.Name()))
	}
	return paths, nil
}

// getFiles pairs media with subtitles. In directory mode both listings are
// sorted by name and paired by position.
func getFiles(input string, sub string, output string, suffix string, isDir bool) ([]*common.CondenseFile, error) {
	files := make([]*common.CondenseFile, 0)

	if !isDir {
		file := &common.CondenseFile{
			Input: input,
			Sub:   sub,
		}
		if output != "" {
			file.Output = output
		} else {
			file.Output = filepath.Join(filepath.Dir(input), getOutputPath(input, suffix))
		}
		return append(files, file), nil
	}

	inputEntries, err := listFiles(input, hasExtension(mediaExtensions))
	if err != nil {
		return nil, err
	}
	subsEntries, err := listFiles(sub, hasExtension(subtitleExtensions))
	if err != nil {
		return nil, err
	}
	if len(inputEntries) == 0 {
		return nil, errors.New("no input files")
	}
	if len(subsEntries) == 0 {
		return nil, errors.New("no input subtitles")
	}
	for i := 0; i < len(inputEntries) && i < len(subsEntries); i++ {
		files = append(files, &common.CondenseFile{
			Input:  inputEntries[i],
			Sub:    subsEntries[i],
			Output: filepath.Join(output, getOutputPath(inputEntries[i], suffix)),
		})
	}
	return files, nil
}
