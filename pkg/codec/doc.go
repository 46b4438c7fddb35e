// Package codec provides record serialization and deserialization for
// kvsdb's log-structured storage engine.
//
// # Record Format
//
// Records are serialized in a binary format with the following structure:
//
//	[Flags(1)][DBKey(8)][KeySize(4)][ValueSize(4)][Key][Value]
//
// Fields:
//   - Flags: record flags; bit 0 marks a tombstone (deletion)
//   - DBKey: 64-bit byte offset the record was written at (little-endian)
//   - KeySize: 32-bit unsigned key length in bytes (little-endian)
//   - ValueSize: 32-bit unsigned value length in bytes (little-endian)
//   - Key: variable-length key data
//   - Value: variable-length value data; absent on tombstones
//
// The total record size is: 17 bytes (header) + len(key) + len(value).
//
// # Framing
//
// The format is self-framing for stream decoding: starting a decode at
// the first byte of a record consumes exactly that record and leaves
// the reader positioned at the first byte of the next one. No
// look-behind is needed, so an append-only log is just a concatenation
// of encoded records with no file-level header.
//
// Decode distinguishes a clean end-of-log from corruption: io.EOF
// before the first header byte means there are no more records; a
// record cut short anywhere else is an error.
//
// # Tombstones
//
// Deletions are encoded as tombstone records. The tombstone flag, not
// an empty value, signals deletion, so a key can legitimately map to a
// zero-length value.
package codec
