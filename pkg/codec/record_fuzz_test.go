//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"io"
	"testing"
)

// FuzzRoundTrip tests encode/decode round-trip with random inputs
func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte(""), []byte(""))
	f.Add([]byte("key"), []byte("value"))
	f.Add([]byte("user:123"), []byte("john@example.com"))
	f.Add([]byte{0x00, 0x01, 0x02}, []byte{0xFF, 0xFE, 0xFD})

	f.Fuzz(func(t *testing.T, key, value []byte) {
		if len(key) > 10000 || len(value) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		rec := NewRecord(key, value)
		var buf bytes.Buffer
		n, err := Encode(&buf, rec)
		if err != nil {
			t.Fatalf("Encode failed for key=%q value=%q: %v", key, value, err)
		}
		if n != rec.EncodedSize() {
			t.Errorf("Encode wrote %d bytes, EncodedSize says %d", n, rec.EncodedSize())
		}

		decoded, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode failed: len(key)=%d len(value)=%d %v", len(key), len(value), err)
		}

		if !bytes.Equal(decoded.Key, key) {
			t.Errorf("Key mismatch: got %q, want %q", decoded.Key, key)
		}
		if !bytes.Equal(decoded.Value, value) {
			t.Errorf("Value mismatch: got %q, want %q", decoded.Value, value)
		}
	})
}

// FuzzMalformedData tests that arbitrary input never panics the decoder
func FuzzMalformedData(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x01})
	f.Add(make([]byte, HeaderSize-1))
	f.Add(make([]byte, HeaderSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		// Decoding random bytes may fail or succeed; it must not panic,
		// and a clean EOF is only legal on an empty stream.
		_, err := Decode(bytes.NewReader(data))
		if err == io.EOF && len(data) > 0 {
			t.Errorf("clean EOF reported with %d bytes remaining", len(data))
		}
	})
}
