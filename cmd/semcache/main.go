package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "semcache",
		Short:   "Semcache — semantic response cache for LLM completions",
		Version: version,
	}

	root.AddCommand(
		newLookupCmd(),
		newStoreCmd(),
		newSweepCmd(),
		newStatsCmd(),
		newFeedbackCmd(),
		newInvalidateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
