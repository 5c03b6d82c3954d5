package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadansyaku/band-part-key-app/cache"
	"github.com/wadansyaku/band-part-key-app/store"
)

func newCleanupCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stored uploads and outputs past retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			retention := a.cfg.Storage.Retention
			if olderThan > 0 {
				retention = olderThan
			}
			st, err := store.Open(ctx, a.cfg.Storage.DatabasePath, a.cfg.Storage.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.Purge(ctx, retention)
			a.forgetRegions(ctx, removed)
			if err != nil {
				return err
			}
			successf(a.stdout, "Removed %d file(s) older than %s", len(removed), retention)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "override the configured retention")
	return cmd
}

// forgetRegions drops the region selections a shared Redis cache holds for
// purged uploads. An in-memory cache does not outlive its server, so there
// is nothing to drop.
func (a *app) forgetRegions(ctx context.Context, removed []store.File) {
	if a.cfg.Cache.Driver != "redis" || len(removed) == 0 {
		return
	}
	client, err := a.openCache()
	if err != nil {
		warnf(a.stderr, "region cache not cleaned: %v", err)
		return
	}
	defer client.Close()

	regions := cache.NewRegions(client, a.cfg.Cache.TTL)
	for _, f := range removed {
		if f.Kind != store.KindUpload {
			continue
		}
		if err := regions.Forget(ctx, f.SHA256); err != nil {
			a.log.Warn().Err(err).Str("file_id", f.ID).Msg("Region cache cleanup failed")
		}
	}
}
