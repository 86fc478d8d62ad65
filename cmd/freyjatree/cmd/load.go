package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"freyjatree/pkg/bptree"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <content-id>",
	Short: "Attach a tree at a specific committed root and inspect it",
	Long: `Load a tree whose root was previously committed as content-id,
without touching HEAD. Only the leftmost path is fetched from the blob
store up front; the rest of the tree loads lazily as the requested
range is walked.

Example:
  freyjatree load 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")

		store, err := openBlobStore(dataDir)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}

		tr, err := bptree.Load[string, string](args[0], bptree.StringComparator(), store, bptree.WithFanout[string, string](fanout))
		if err != nil {
			return fmt.Errorf("load %s: %w", args[0], err)
		}

		size, err := tr.Size()
		if err != nil {
			return fmt.Errorf("compute size: %w", err)
		}
		fmt.Printf("root: %s\nheight: %d\nsize: %d\n", args[0], tr.Height(), size)

		pairs, err := tr.GetRange(nil, nil, true, true)
		if err != nil {
			return fmt.Errorf("range scan: %w", err)
		}
		for _, p := range pairs {
			fmt.Printf("%s=%s\n", p.Key, p.Value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
