package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	bandpart "github.com/wadansyaku/band-part-key-app"
	"github.com/wadansyaku/band-part-key-app/model"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	headColor    = color.New(color.FgCyan, color.Bold)
	dimColor     = color.New(color.Faint)
)

func successf(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func warnf(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "! "+format+"\n", args...)
}

func section(w io.Writer, title string) {
	headColor.Fprintln(w, title)
}

func printWarnings(w io.Writer, warnings []bandpart.Warning) {
	for _, warning := range warnings {
		warnf(w, "%s", warning)
	}
}

// table writes rows aligned under headers.
func table(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(tw, strings.Join(separator, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// partRows lists part counts in instrument order.
func partRows(parts map[model.Instrument]int) [][]string {
	var rows [][]string
	for _, inst := range model.Instruments {
		if n, ok := parts[inst]; ok {
			rows = append(rows, []string{string(inst), fmt.Sprint(n)})
		}
	}
	var rest []string
	for inst := range parts {
		if !known(inst) {
			rest = append(rest, string(inst))
		}
	}
	sort.Strings(rest)
	for _, inst := range rest {
		rows = append(rows, []string{inst, fmt.Sprint(parts[model.Instrument(inst)])})
	}
	return rows
}

func known(inst model.Instrument) bool {
	for _, k := range model.Instruments {
		if k == inst {
			return true
		}
	}
	return false
}

// pageProgress returns a progress callback drawing a bar on w once the
// page total is known.
func pageProgress(w io.Writer, description string) (bandpart.ProgressFunc, func()) {
	var bar *progressbar.ProgressBar
	report := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("pages"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "│",
					BarEnd:        "│",
				}),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}
	return report, finish
}
