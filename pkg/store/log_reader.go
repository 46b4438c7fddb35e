package store

import (
	"bufio"
	"io"
	"os"

	"github.com/ssargent/kvsdb/pkg/codec"
)

// LogReader provides seekable, buffered read access to records in a
// log file, independent of the writer over the same file.
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	path   string
	offset int64
}

// NewLogReader opens a read handle on path positioned at offset 0.
func NewLogReader(path string) (*LogReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		path:   path,
	}, nil
}

// ReadNext decodes the record at the current offset and advances past
// it. A clean end-of-log returns io.EOF.
func (r *LogReader) ReadNext() (*codec.Record, error) {
	rec, err := codec.Decode(r.reader)
	if err != nil {
		return nil, err
	}
	r.offset += rec.EncodedSize()
	return rec, nil
}

// ReadAt seeks to offset and decodes exactly one record.
func (r *LogReader) ReadAt(offset int64) (*codec.Record, error) {
	if err := r.Seek(offset); err != nil {
		return nil, err
	}
	rec, err := r.ReadNext()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return rec, err
}

// Seek repositions the reader at offset, dropping buffered bytes.
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, 0); err != nil {
		return err
	}
	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset.
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Path returns the file path.
func (r *LogReader) Path() string {
	return r.path
}

// Close closes the read handle.
func (r *LogReader) Close() error {
	return r.file.Close()
}
