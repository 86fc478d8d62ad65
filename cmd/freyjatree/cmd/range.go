package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rangeCmd represents the range command
var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "List key/value pairs in [--lower, --upper] from the tree at HEAD",
	Long: `Scan the tree at HEAD between an optional lower and upper bound,
printing every matching pair in ascending key order.

Example:
  freyjatree range --lower a --upper m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")
		lower, _ := cmd.Flags().GetString("lower")
		upper, _ := cmd.Flags().GetString("upper")
		lowerExcl, _ := cmd.Flags().GetBool("exclude-lower")
		upperExcl, _ := cmd.Flags().GetBool("exclude-upper")

		tr, _, err := openTree(dataDir, fanout)
		if err != nil {
			return err
		}

		var lowerPtr, upperPtr *string
		if cmd.Flags().Changed("lower") {
			lowerPtr = &lower
		}
		if cmd.Flags().Changed("upper") {
			upperPtr = &upper
		}

		pairs, err := tr.GetRange(lowerPtr, upperPtr, !lowerExcl, !upperExcl)
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
	rootCmd.AddCommand(rangeCmd)
	rangeCmd.Flags().String("lower", "", "Lower bound key (omit for unbounded)")
	rangeCmd.Flags().String("upper", "", "Upper bound key (omit for unbounded)")
	rangeCmd.Flags().Bool("exclude-lower", false, "Exclude the lower bound from the scan")
	rangeCmd.Flags().Bool("exclude-upper", false, "Exclude the upper bound from the scan")
}
