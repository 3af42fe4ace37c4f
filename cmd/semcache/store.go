package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/spf13/cobra"
)

func newStoreCmd() *cobra.Command {
	var (
		configPath  string
		model       string
		contextHash string
		tokens      int64
		cost        float64
	)

	cmd := &cobra.Command{
		Use:   "store <query> <answer>",
		Short: "Cache a fresh answer for a query",
		Args:  cobra.ExactArgs(2),
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

			entry, err := svc.Store(context.Background(), semcache.StoreInput{
				Query:       args[0],
				Answer:      args[1],
				Model:       model,
				ContextHash: contextHash,
				TokensSaved: tokens,
				CostSaved:   cost,
			})
			if err != nil {
				return err
			}
			fmt.Printf("stored %s (type=%s tier=%s)\n", entry.ID, entry.QueryType, entry.Tier)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model id that produced the answer")
	cmd.Flags().StringVar(&contextHash, "context-hash", "", "fingerprint of upstream data the answer depends on")
	cmd.Flags().Int64Var(&tokens, "tokens", 0, "tokens a future hit will save")
	cmd.Flags().Float64Var(&cost, "cost", 0, "cost a future hit will save")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
