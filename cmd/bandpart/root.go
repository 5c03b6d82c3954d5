package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wadansyaku/band-part-key-app/config"
	"github.com/wadansyaku/band-part-key-app/internal/logging"
	"github.com/wadansyaku/band-part-key-app/ocr"
)

// app is the state shared by all commands once flags are parsed.
type app struct {
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "bandpart",
		Short: "Extract vocal and keyboard parts from band scores",
		Long: `bandpart finds the vocal and keyboard staves of a band score PDF, using
the instrument labels printed beside them, and lays the matching systems out
in a new, compact PDF.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newExtractCmd(a),
		newInspectCmd(a),
		newServeCmd(a),
		newCleanupCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if a.noColor {
		color.NoColor = true
		cfg.Logging.NoColor = true
	}
	cfg.Logging.Output = a.stderr
	a.cfg = cfg
	a.log = logging.New(cfg.Logging)
	return nil
}

// recognizer starts the recognition engine when enabled. It returns nil
// and prints a notice when none is available; labels are then read from
// the text layer only.
func (a *app) recognizer(disabled bool) (*ocr.Client, func()) {
	if disabled || !a.cfg.OCR.Enabled {
		return nil, func() {}
	}
	client, err := ocr.New(a.cfg.OCR.Languages...)
	if err != nil {
		a.log.Debug().Err(err).Msg("Recognition engine unavailable")
		warnf(a.stderr, "text recognition unavailable; scanned pages use the canonical layout")
		return nil, func() {}
	}
	return client, func() { client.Close() }
}
