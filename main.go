package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quietcircle/community/config"
	"github.com/quietcircle/community/utils"
)

var rootCmd = &cobra.Command{
	Use:           "community",
	Short:         "Anonymous community service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger early
		if err := utils.InitLogger(config.Load()); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = utils.Logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedTagsCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.Logger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
