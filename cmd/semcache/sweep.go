package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one maintenance sweep over the whole cache",
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

			stats, err := svc.RunMaintenanceSweep(context.Background(), batchSize)
			if err != nil {
				return err
			}
			fmt.Printf("hot=%d warm=%d cool=%d cold=%d\n", stats.Hot, stats.Warm, stats.Cool, stats.Cold)
			fmt.Printf("deleted=%d promoted=%d demoted=%d failed=%d\n", stats.Deleted, stats.Promoted, stats.Demoted, stats.Failed)
			fmt.Printf("health=%.1f avg_access=%.2f avg_age_days=%.1f\n", stats.HealthScore, stats.AvgAccessCount, stats.AvgAgeDays)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "entries per batch (0 uses the configured size)")
	return cmd
}
