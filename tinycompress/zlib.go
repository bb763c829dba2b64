// Package tinycompress implements zlib-format compression without pulling
// in compress/flate, which TinyGo's small-target builds cannot always fit.
// It only ever emits stored (uncompressed) DEFLATE blocks — the dictionary
// this feeds is small and fetched once, so ratio doesn't matter, only
// staying within a constrained binary's size budget.
package tinycompress

import (
	"hash"
	"hash/adler32"
	"io"
)

// Writer is an io.WriteCloser that accumulates writes and emits a single
// zlib-framed stored block on Close.
type Writer struct {
	output   io.Writer
	inputBuf []byte
	adler    hash.Hash32
}

// NewWriter creates a Writer over w. Writes are buffered until Close.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		output:   w,
		inputBuf: make([]byte, 0, 4096),
		adler:    adler32.New(),
	}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.inputBuf = append(w.inputBuf, p...)
	return len(p), nil
}

// Close writes the zlib header, a single final stored block holding every
// byte written so far, and the trailing Adler-32 checksum.
func (w *Writer) Close() error {
	if _, err := w.output.Write([]byte{0x78, 0x9C}); err != nil {
		return err
	}
	if _, err := w.output.Write([]byte{0x01}); err != nil { // final, stored
		return err
	}

	length := uint16(len(w.inputBuf))
	if _, err := w.output.Write([]byte{byte(length), byte(length >> 8)}); err != nil {
		return err
	}
	nlength := ^length
	if _, err := w.output.Write([]byte{byte(nlength), byte(nlength >> 8)}); err != nil {
		return err
	}

	if _, err := w.output.Write(w.inputBuf); err != nil {
		return err
	}

	checksum := adler32.Checksum(w.inputBuf)
	_, err := w.output.Write([]byte{
		byte(checksum >> 24),
		byte(checksum >> 16),
		byte(checksum >> 8),
		byte(checksum),
	})
	return err
}

// Decompress decompresses a single-stored-block zlib stream produced by
// Writer, returning the original bytes.
func Decompress(compressed []byte) ([]byte, error) {
	if len(compressed) < 11 || compressed[0] != 0x78 {
		return nil, io.ErrUnexpectedEOF
	}
	length := int(compressed[3]) | int(compressed[4])<<8
	start := 7
	if start+length+4 > len(compressed) {
		return nil, io.ErrUnexpectedEOF
	}
	data := compressed[start : start+length]

	sumStart := start + length
	expected := uint32(compressed[sumStart])<<24 |
		uint32(compressed[sumStart+1])<<16 |
		uint32(compressed[sumStart+2])<<8 |
		uint32(compressed[sumStart+3])
	if adler32.Checksum(data) != expected {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
