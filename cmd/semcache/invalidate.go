package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/spf13/cobra"
)

func newInvalidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "invalidate <context-hash>",
		Short: "Remove every entry that depends on a context hash",
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

			n, err := svc.InvalidateContext(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("invalidated %d entries\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	return cmd
}
