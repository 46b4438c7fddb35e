package cmd

import (
	"github.com/spf13/cobra"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key to the given value",
	Long: `Set a key to the given value in the store.

Example:
  kvs set mykey myvalue`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		return kv.Set([]byte(args[0]), []byte(args[1]))
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
