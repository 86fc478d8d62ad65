package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Look up the value for a key in the tree at HEAD",
	Long: `Get the value stored for a key in the tree currently pointed to
by HEAD.

Example:
  freyjatree get mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")

		tr, _, err := openTree(dataDir, fanout)
		if err != nil {
			return err
		}

		value, ok, err := tr.Get(args[0])
		if err != nil {
			return fmt.Errorf("get %q: %w", args[0], err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "key %q not found\n", args[0])
			os.Exit(1)
		}
		fmt.Println(value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
