package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	bandpart "github.com/wadansyaku/band-part-key-app"
	"github.com/wadansyaku/band-part-key-app/model"
)

type extractFlags struct {
	output  string
	pages   string
	targets []string
	workers int
	dpi     float64
	noOCR   bool
	timeout time.Duration
}

func newExtractCmd(a *app) *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract <score.pdf>",
		Short: "Write the target parts of a score to a new PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output path (default <score>_parts.pdf)")
	cmd.Flags().StringVarP(&f.pages, "pages", "p", "", "pages to extract, e.g. 1-3,5")
	cmd.Flags().StringSliceVarP(&f.targets, "targets", "t", nil, "instruments to keep (default from config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "pages analyzed at once (default from config)")
	cmd.Flags().Float64Var(&f.dpi, "dpi", 0, "analysis resolution (default from config)")
	cmd.Flags().BoolVar(&f.noOCR, "no-ocr", false, "read labels from the text layer only")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Minute, "give up after this long")
	return cmd
}

// extractorFor builds the configured Extractor for a score.
func (a *app) extractorFor(path string, pageSpec string, targets []string, workers int, dpi float64) (*bandpart.Extractor, error) {
	cfg := a.cfg.Extraction
	if len(targets) > 0 {
		cfg.Targets = nil
		for _, name := range targets {
			inst, err := model.ParseInstrument(name)
			if err != nil {
				return nil, err
			}
			cfg.Targets = append(cfg.Targets, inst)
		}
	}
	if dpi > 0 {
		cfg.DPI = dpi
	}
	pages, err := parsePages(pageSpec)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = a.cfg.Server.Workers
	}

	ex := bandpart.Open(path).WithConfig(cfg).Workers(workers).WithLogger(a.log)
	if len(pages) > 0 {
		ex = ex.Pages(pages...)
	}
	return ex, nil
}

func (a *app) runExtract(ctx context.Context, input string, f *extractFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ex, err := a.extractorFor(input, f.pages, f.targets, f.workers, f.dpi)
	if err != nil {
		return err
	}
	output := f.output
	if output == "" {
		output = defaultOutput(input)
	}

	client, closeOCR := a.recognizer(f.noOCR)
	defer closeOCR()
	if client != nil {
		ex = ex.WithRecognizer(client)
	}

	report, finish := pageProgress(a.stderr, "Analyzing")
	title := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	result, warnings, err := ex.WithTitle(title).OnProgress(report).ExtractToFile(ctx, output)
	finish()
	printWarnings(a.stderr, warnings)
	if err != nil {
		if errors.Is(err, bandpart.ErrExtractionFailed) {
			return fmt.Errorf("%s: %w", input, err)
		}
		return err
	}

	section(a.stdout, "Extracted parts")
	table(a.stdout, []string{"Part", "Systems"}, partRows(result.Parts()))
	if result.Rasterized > 0 {
		dimColor.Fprintf(a.stdout, "%d of %d systems placed as images\n", result.Rasterized, len(result.Regions))
	}
	successf(a.stdout, "Wrote %d page(s) to %s", result.Pages, output)
	return nil
}

// defaultOutput names the output after the input: score.pdf becomes
// score_parts.pdf in the same directory.
func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_parts.pdf"
}
