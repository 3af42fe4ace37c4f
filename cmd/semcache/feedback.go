package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/semcache"
	"github.com/spf13/cobra"
)

func newFeedbackCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		comment    string
	)

	cmd := &cobra.Command{
		Use:   "feedback <entry-id> <helpful|outdated|incorrect>",
		Short: "Record a judgment about a cached answer",
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

			kind := models.FeedbackKind(args[1])
			if err := svc.SubmitFeedback(context.Background(), args[0], userID, kind, comment); err != nil {
				return err
			}
			fmt.Println("feedback recorded")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semcache.yaml", "path to config file")
	cmd.Flags().StringVar(&userID, "user", "", "optional user id")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	return cmd
}
