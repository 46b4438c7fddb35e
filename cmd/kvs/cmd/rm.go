package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvsdb/pkg/store"
)

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Remove a key and its value",
	Long: `Remove a key and its value from the store. Removing a key
that is not present prints "Key not found" and exits nonzero.

Example:
  kvs rm mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		err = kv.Remove([]byte(args[0]))
		if errors.Is(err, store.ErrKeyNotPresent) {
			// Prints on stdout and still fails the command.
			fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
			return err
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
