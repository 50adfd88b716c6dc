package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shirerpeton/dialogCondenser/internal/common"
)

var (
	label     = color.New(color.FgYellow).SprintFunc()
	source    = color.New(color.FgGreen).SprintFunc()
	highlight = color.New(color.FgMagenta).SprintFunc()
	failure   = color.New(color.FgRed).SprintFunc()
)

func percentOf(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func printStats(w io.Writer, files []*common.CondenseFile) {
	for _, file := range files {
		if file.Err != nil {
			continue
		}
		fmt.Fprintf(w, "%s%s\n", label("input: "), source(file.Input))
		fmt.Fprintf(w, "%s%s\n", label("sub: "), source(file.Sub))
		fmt.Fprintf(w, "%s%s\n", label("duration: "), source(file.OriginalDuration))
		fmt.Fprintf(w, "%s%s\n", label("output: "), highlight(file.Output))
		fmt.Fprintf(w, "%s%s\n", label("windows: "), highlight(len(file.Windows)))
		fmt.Fprintf(w, "%s%s\n", label("condensed duration: "),
			highlight(fmt.Sprintf("%v (%.1f%%)", file.CondensedDuration, percentOf(file.CondensedDuration, file.OriginalDuration))))
		if file.Bytes > 0 {
			fmt.Fprintf(w, "%s%s\n", label("size: "), highlight(humanize.Bytes(uint64(file.Bytes))))
		}
		fmt.Fprintln(w)
	}
}

func renderSummary(files []*common.CondenseFile) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Input", "Status", "Duration", "Condensed", "%", "Size"})

	var original, condensed time.Duration
	failed := 0
	for _, file := range files {
		if file.Err != nil {
			failed++
			tw.AppendRow(table.Row{file.Input, failure("failed"), "", "", "", ""})
			continue
		}
		original += file.OriginalDuration
		condensed += file.CondensedDuration
		size := ""
		if file.Bytes > 0 {
			size = humanize.Bytes(uint64(file.Bytes))
		}
		tw.AppendRow(table.Row{
			file.Input,
			"ok",
			file.OriginalDuration.Round(time.Second).String(),
			file.CondensedDuration.Round(time.Second).String(),
			fmt.Sprintf("%.1f", percentOf(file.CondensedDuration, file.OriginalDuration)),
			size,
		})
	}
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d files", len(files)),
		fmt.Sprintf("%d failed", failed),
		original.Round(time.Second).String(),
		condensed.Round(time.Second).String(),
		fmt.Sprintf("%.1f", percentOf(condensed, original)),
		"",
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
