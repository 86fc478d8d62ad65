/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"freyjatree/pkg/di"
)

// container holds the dependencies injected by main, used by commands (up,
// serve) that need to construct a server.
var container *di.Container

// SetContainer injects the dependency container built in main into this
// package, so commands can reach the server factory without importing main.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "freyjatree",
	Short: "FreyjaTree - an embeddable, copy-on-write persistent B+ tree",
	Long: `FreyjaTree is an in-memory B+ tree with O(1) structural-sharing
clones and optional content-addressed persistence to a blob store.

Every command operates on the tree rooted at the content id recorded in
<data-dir>/HEAD, the way a git worktree tracks a commit: mutating
commands (put, delete) load that tree, apply the change, commit the
result, and rewrite HEAD to point at the new root.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global data directory flag
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the tree's blob store and HEAD pointer")
	rootCmd.PersistentFlags().Int("fanout", 64, "Maximum children per internal node for newly built trees")
}
