package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the SkillForge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillforge",
		Short: "SkillForge - a self-hosted learning platform backend",
		Long: `SkillForge serves the learning platform API: account registration,
cookie-based sessions, and per-user module progress (completion and pins).`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
