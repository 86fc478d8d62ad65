package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// commitCmd represents the commit command
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Print the content id HEAD currently points to",
	Long: `Print the content id of the tree currently pointed to by HEAD.

Every mutating command already commits its result, so this is mainly
useful for capturing a root id to pass to "load" later, or to confirm
that two data directories converged on the same tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		id, ok, err := readHead(dataDir)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(empty tree, nothing committed yet)")
			return nil
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}
