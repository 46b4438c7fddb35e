package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ssargent/kvsdb/pkg/config"
	"github.com/ssargent/kvsdb/pkg/store"
)

var (
	dataDir    string
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kvs",
	Short: "kvsdb - log-structured key-value store",
	Long: `kvs is a command-line front end for kvsdb, a log-structured
key-value store backed by a single append-only file with online
compaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Any error, including an unrecognized
// command or bad arguments, exits nonzero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", ".", "Data directory for the store")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
}

// openStore builds and opens the store from the optional config file
// plus flags. Flags win over the config file.
func openStore() (*store.KVStore, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if rootCmd.PersistentFlags().Changed("data-dir") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "kvsdb",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})

	kv, err := store.NewKVStore(store.KVStoreConfig{
		DataDir:       cfg.DataDir,
		StaleFraction: cfg.Compaction.StaleFraction,
		MinRecords:    cfg.Compaction.MinRecords,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	if _, err := kv.Open(); err != nil {
		return nil, err
	}
	return kv, nil
}
