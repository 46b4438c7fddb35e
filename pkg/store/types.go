package store

import (
	"github.com/hashicorp/go-hclog"
)

// Compaction threshold defaults.
const (
	DefaultStaleFraction = 0.25
	DefaultMinRecords    = 100
)

// KVStoreConfig holds configuration for the key-value store.
type KVStoreConfig struct {
	DataDir       string       // Directory for log files
	StaleFraction float64      // Stale/live ratio that arms compaction (default 0.25)
	MinRecords    uint64       // Stale record floor before compaction runs (default 100)
	Logger        hclog.Logger // Structured logger; nil means no logging
}

// ReplayResult holds statistics about the log replay performed by Open.
type ReplayResult struct {
	RecordsScanned int64  // Total records decoded from the log
	LiveKeys       int    // Keys live in the index after replay
	StaleRecords   uint64 // Superseded records counted during replay
	LogPath        string // The log file the store settled on
}

// StoreStats holds statistics about an open store.
type StoreStats struct {
	Keys         int    // Live keys in the index
	StaleRecords uint64 // Records superseded since the last compaction
	DataSize     int64  // Size of the log file in bytes
	LogPath      string // Path of the active log file
}
