package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	bandpart "github.com/wadansyaku/band-part-key-app"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		pages   string
		noOCR   bool
		asJSON  bool
		targets []string
	)
	cmd := &cobra.Command{
		Use:   "inspect <score.pdf>",
		Short: "Show the staves, labels and parts found on each page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ex, err := a.extractorFor(args[0], pages, targets, 0, 0)
			if err != nil {
				return err
			}
			client, closeOCR := a.recognizer(noOCR)
			defer closeOCR()
			if client != nil {
				ex = ex.WithRecognizer(client)
			}

			analysis, warnings, err := ex.Analyze(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}
			printAnalysis(a.stdout, analysis)
			printWarnings(a.stderr, warnings)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "pages to inspect, e.g. 1-3,5")
	cmd.Flags().StringSliceVarP(&targets, "targets", "t", nil, "instruments to keep (default from config)")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "read labels from the text layer only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full analysis as JSON")
	return cmd
}

func printAnalysis(w io.Writer, analysis *bandpart.Analysis) {
	for _, p := range analysis.Pages {
		section(w, fmt.Sprintf("Page %d", p.Page+1))
		if len(p.Layout.Systems) == 0 {
			dimColor.Fprintln(w, "  no staff systems")
			continue
		}
		fmt.Fprintf(w, "  %d systems in %d group(s), %s detection, %s mapping\n",
			len(p.Layout.Systems), p.Layout.Groups, p.Detection, p.Strategy)

		labels := make([]string, len(p.Labels))
		for i, l := range p.Labels {
			labels[i] = fmt.Sprintf("%s %q", l.Instrument, l.Raw)
		}
		if len(labels) > 0 {
			fmt.Fprintf(w, "  labels: %s\n", strings.Join(labels, ", "))
		}

		rows := make([][]string, len(p.Regions))
		for i, r := range p.Regions {
			rows[i] = []string{
				fmt.Sprint(r.System),
				string(r.Instrument),
				fmt.Sprintf("%.0f-%.0f", r.Clip.Y0, r.Clip.Y1),
				fmt.Sprintf("%.2f", r.Confidence),
			}
		}
		if len(rows) > 0 {
			table(w, []string{"System", "Part", "Span", "Confidence"}, rows)
		}
	}
	parts := analysis.Parts()
	if len(parts) > 0 {
		section(w, "Total")
		table(w, []string{"Part", "Systems"}, partRows(parts))
	}
}
