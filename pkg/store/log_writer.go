package store

import (
	"bufio"
	"os"

	"github.com/ssargent/kvsdb/pkg/codec"
)

const writerBufferSize = 64 * 1024

// LogWriter handles append-only writes to a log file. Its current
// offset is the authoritative position for the next record.
type LogWriter struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	offset int64
}

// NewLogWriter opens path for appending, creating it if missing. With
// truncate set the file is emptied and the writer starts at offset 0;
// otherwise the writer is positioned at end-of-file.
func NewLogWriter(path string, truncate bool) (*LogWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if truncate {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, 2)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, writerBufferSize),
		path:   path,
		offset: offset,
	}, nil
}

// Append stamps rec.DBKey with the current offset, encodes the record,
// and flushes it through to the OS. It returns the offset the record
// was written at.
//
// On any encode or flush failure the file is truncated back to the
// pre-write offset before the error is surfaced, so partial bytes can
// never be observed by a later reader.
func (w *LogWriter) Append(rec *codec.Record) (int64, error) {
	start := w.offset
	rec.DBKey = uint64(start)

	n, err := codec.Encode(w.writer, rec)
	if err != nil {
		w.rollback(start)
		return 0, err
	}
	if err := w.writer.Flush(); err != nil {
		w.rollback(start)
		return 0, err
	}

	w.offset = start + n
	return start, nil
}

// rollback discards buffered bytes and truncates the file back to
// offset, restoring the pre-write state after a failed append.
func (w *LogWriter) rollback(offset int64) {
	w.writer.Reset(w.file)
	_ = w.file.Truncate(offset)
	_, _ = w.file.Seek(offset, 0)
	w.offset = offset
}

// Flush pushes buffered bytes to the OS.
func (w *LogWriter) Flush() error {
	return w.writer.Flush()
}

// Offset returns the offset the next record will be written at.
func (w *LogWriter) Offset() int64 {
	return w.offset
}

// Size returns the current size of the log file.
func (w *LogWriter) Size() int64 {
	return w.offset
}

// Path returns the file path.
func (w *LogWriter) Path() string {
	return w.path
}

// Close flushes buffered bytes and closes the file.
func (w *LogWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
