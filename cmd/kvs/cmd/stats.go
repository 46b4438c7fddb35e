package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics",
	Long: `Print the number of live keys, superseded records, and the
size and path of the active log file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		stats := kv.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "keys:          %d\n", stats.Keys)
		fmt.Fprintf(out, "stale records: %d\n", stats.StaleRecords)
		fmt.Fprintf(out, "data size:     %d bytes\n", stats.DataSize)
		fmt.Fprintf(out, "log file:      %s\n", stats.LogPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
