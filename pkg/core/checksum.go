package core

import (
	"hash"
	"hash/crc32"
	"io"
)

// Checksum returns the CRC-32 (IEEE) of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// NewChecksum returns a running CRC-32 (IEEE) hash, matching Checksum.
func NewChecksum() hash.Hash32 {
	return crc32.NewIEEE()
}

// countingWriter tracks the number of bytes passed through to W.
type countingWriter struct {
	W io.Writer
	N uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += uint64(n)
	return n, err
}

// sourceReader remembers the first non-EOF error returned by R, so a failure
// reading the archive can be told apart from a decompressor rejecting data.
type sourceReader struct {
	R   io.Reader
	Err error
}

func (sr *sourceReader) Read(p []byte) (int, error) {
	n, err := sr.R.Read(p)
	if err != nil && err != io.EOF && sr.Err == nil {
		sr.Err = err
	}
	return n, err
}
