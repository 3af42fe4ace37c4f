package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/pario-ai/semcache/pkg/store"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache savings and the latest lifecycle snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			svc, err := semcache.FromConfig(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			ctx := context.Background()
			stats, err := svc.Stats(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Entries:\t%d\n", stats.Entries)
			fmt.Fprintf(w, "Total hits:\t%d\n", stats.TotalHits)
			fmt.Fprintf(w, "Tokens saved:\t%d\n", stats.TokensSaved)
			fmt.Fprintf(w, "Cost saved:\t$%.4f\n", stats.CostSaved)

			latest, err := svc.LatestLifecycleStats(ctx)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Fprintln(w, "Last sweep:\tnever")
			case err != nil:
				return err
			default:
				fmt.Fprintf(w, "Last sweep:\t%s\n", latest.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "Tiers:\thot=%d warm=%d cool=%d cold=%d\n", latest.Hot, latest.Warm, latest.Cool, latest.Cold)
				fmt.Fprintf(w, "Health:\t%.1f\n", latest.HealthScore)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	return cmd
}
