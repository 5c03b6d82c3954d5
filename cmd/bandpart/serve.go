package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wadansyaku/band-part-key-app/cache"
	"github.com/wadansyaku/band-part-key-app/server"
	"github.com/wadansyaku/band-part-key-app/store"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen address (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, a.cfg.Storage.DatabasePath, a.cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := a.openCache()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []server.Option{
		server.WithLogger(a.log),
		server.WithRegionCache(cache.NewRegions(client, a.cfg.Cache.TTL)),
	}
	recognizer, closeOCR := a.recognizer(false)
	defer closeOCR()
	if recognizer != nil {
		opts = append(opts, server.WithRecognizer(recognizer))
	}

	a.log.Info().
		Str("data_dir", a.cfg.Storage.DataDir).
		Str("cache", a.cfg.Cache.Driver).
		Bool("ocr", recognizer != nil).
		Msg("Starting server")
	return server.New(a.cfg, st, opts...).Run(ctx)
}

// openCache connects the configured region cache client.
func (a *app) openCache() (cache.Client, error) {
	rc := a.cfg.Cache.Redis
	return cache.New(a.cfg.Cache.Driver, cache.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		PoolSize: rc.PoolSize,
		Prefix:   rc.Prefix,
	}, a.cfg.Cache.MaxEntries)
}
