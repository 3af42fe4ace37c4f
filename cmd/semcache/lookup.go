package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	var (
		configPath string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "lookup <query>",
		Short: "Look up a query in the semantic cache",
		Args:  cobra.ExactArgs(1),
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

			res, err := svc.Lookup(context.Background(), args[0], model, nil)
			if err != nil {
				return err
			}
			if !res.Hit {
				fmt.Println("miss")
				return nil
			}
			fmt.Printf("hit (%.1f%% similar to %q)\n%s\n", res.SimilarityPercent, res.OriginalQuery, res.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model id the query targets")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
