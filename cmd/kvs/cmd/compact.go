package cmd

import (
	"github.com/spf13/cobra"
)

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the log, dropping superseded records",
	Long: `Force a compaction cycle: rewrite the live records into a
fresh log file and delete the old one, regardless of the compaction
thresholds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		return kv.Compact()
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
