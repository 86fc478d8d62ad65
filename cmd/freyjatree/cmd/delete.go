package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key from the tree at HEAD and commit the result",
	Long: `Delete a key from the tree currently pointed to by HEAD, commit
the new tree, and advance HEAD.

Example:
  freyjatree delete mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")

		tr, _, err := openTree(dataDir, fanout)
		if err != nil {
			return err
		}

		found, err := tr.Delete(args[0])
		if err != nil {
			return fmt.Errorf("delete %q: %w", args[0], err)
		}
		if !found {
			fmt.Fprintf(os.Stderr, "key %q not found\n", args[0])
			os.Exit(1)
		}

		id, err := commitAndAdvanceHead(tr, dataDir)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %q (new root %s)\n", args[0], id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
