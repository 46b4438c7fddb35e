package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed size of the record header in bytes:
// Flags(1) + DBKey(8) + KeySize(4) + ValueSize(4).
const HeaderSize = 1 + 8 + 4 + 4

// Record flags. Bits outside flagMask are reserved and reject on decode.
const (
	// FlagTombstone marks a deletion record. Tombstones carry no value
	// bytes; the flag is what distinguishes deletion from an empty value.
	FlagTombstone byte = 1 << 0

	flagMask = FlagTombstone
)

// maxFieldSize bounds the key and value lengths a decoder will accept.
// A torn header can present arbitrary size fields; refusing absurd ones
// keeps a corrupt log from forcing a giant allocation.
const maxFieldSize = 1 << 30

// Record represents one key-value record in the log.
type Record struct {
	DBKey     uint64 // Byte offset this record was written at
	Key       []byte // Key data
	Value     []byte // Value data; nil for tombstones
	Tombstone bool   // True if this record deletes its key
}

// NewRecord creates a write record for a key-value pair.
func NewRecord(key, value []byte) *Record {
	return &Record{
		Key:   key,
		Value: value,
	}
}

// NewTombstone creates a deletion record for a key.
func NewTombstone(key []byte) *Record {
	return &Record{
		Key:       key,
		Tombstone: true,
	}
}

// EncodedSize returns the total size of the record when encoded.
func (r *Record) EncodedSize() int64 {
	return int64(HeaderSize + len(r.Key) + len(r.Value))
}

// Encode serializes the record to w and returns the number of bytes
// written. The encoding is self-framed: a decoder starting at the first
// byte consumes exactly EncodedSize() bytes.
//
// Format: [Flags(1)][DBKey(8)][KeySize(4)][ValueSize(4)][Key][Value]
// with all integers little-endian.
func Encode(w io.Writer, r *Record) (int64, error) {
	var header [HeaderSize]byte

	var flags byte
	if r.Tombstone {
		flags |= FlagTombstone
	}
	header[0] = flags
	binary.LittleEndian.PutUint64(header[1:9], r.DBKey)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(header[13:17], uint32(len(r.Value)))

	var written int64
	n, err := w.Write(header[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	n, err = w.Write(r.Key)
	written += int64(n)
	if err != nil {
		return written, err
	}

	n, err = w.Write(r.Value)
	written += int64(n)
	if err != nil {
		return written, err
	}

	return written, nil
}

// Decode reads the next record from r. A clean end-of-log (EOF before
// the first header byte) returns io.EOF; a record cut short mid-header
// or mid-body is a corruption error. After a successful decode the
// reader is positioned at the first byte of the next record.
func Decode(r io.Reader) (*Record, error) {
	var header [HeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("codec: truncated record header")
		}
		return nil, err
	}

	flags := header[0]
	if flags&^flagMask != 0 {
		return nil, fmt.Errorf("codec: invalid record flags 0x%02x", flags)
	}

	record := &Record{
		DBKey:     binary.LittleEndian.Uint64(header[1:9]),
		Tombstone: flags&FlagTombstone != 0,
	}
	keySize := binary.LittleEndian.Uint32(header[9:13])
	valueSize := binary.LittleEndian.Uint32(header[13:17])

	if keySize > maxFieldSize || valueSize > maxFieldSize {
		return nil, fmt.Errorf("codec: implausible record sizes key=%d value=%d", keySize, valueSize)
	}
	if record.Tombstone && valueSize != 0 {
		return nil, fmt.Errorf("codec: tombstone record with %d value bytes", valueSize)
	}

	body := make([]byte, int(keySize)+int(valueSize))
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("codec: truncated record body")
		}
		return nil, err
	}

	record.Key = body[:keySize:keySize]
	if !record.Tombstone {
		record.Value = body[keySize:]
	}

	return record, nil
}
