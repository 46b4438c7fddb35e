package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get the value stored under a key",
	Long: `Get the value stored under a key. A missing key prints
"Key not found" and exits zero.

Example:
  kvs get mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		value, found, err := kv.Get([]byte(args[0]))
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
