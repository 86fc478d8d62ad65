package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Set a key to a value and commit the result",
	Long: `Set a key to a value in the tree at HEAD, commit the new tree
to the blob store, and advance HEAD to the new root.

By default an existing key is overwritten; pass --no-overwrite to leave
the tree untouched when the key is already present.

Example:
  freyjatree put mykey myvalue`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")
		noOverwrite, _ := cmd.Flags().GetBool("no-overwrite")

		tr, _, err := openTree(dataDir, fanout)
		if err != nil {
			return err
		}

		added, err := tr.Set(args[0], args[1], !noOverwrite)
		if err != nil {
			return fmt.Errorf("set %q: %w", args[0], err)
		}

		id, err := commitAndAdvanceHead(tr, dataDir)
		if err != nil {
			return err
		}

		switch {
		case added:
			fmt.Printf("set %q (new root %s)\n", args[0], id)
		case noOverwrite:
			fmt.Printf("%q already present, left unchanged (root %s)\n", args[0], id)
		default:
			fmt.Printf("updated %q (new root %s)\n", args[0], id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().Bool("no-overwrite", false, "Fail quietly instead of overwriting an existing key")
}
