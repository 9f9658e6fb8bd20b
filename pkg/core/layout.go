package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// EncodeHeader returns the on-disk header for an archive holding fileCount entries.
func EncodeHeader(fileCount uint32) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], Signature)
	buf[4] = Version
	binary.LittleEndian.PutUint32(buf[5:9], fileCount)
	return buf
}

// DecodeHeader parses and validates a header. The signature is checked before
// the version, and nothing past the version is trusted until both match.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, need %d", ErrTruncated, len(b), HeaderSize)
	}
	h := Header{
		Signature: binary.LittleEndian.Uint32(b[0:4]),
		Version:   b[4],
		FileCount: binary.LittleEndian.Uint32(b[5:9]),
	}
	if h.Signature != Signature {
		return Header{}, fmt.Errorf("%w: %q", ErrInvalidSignature, b[0:4])
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// EntrySize returns the encoded size of a directory entry whose name is
// nameLength bytes long.
func EntrySize(nameLength int) int {
	return entryFixedSize + nameLength
}

// EncodeEntry returns the directory record for e.
func EncodeEntry(e FileEntry) ([]byte, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("%w: empty entry name", ErrUnsafePath)
	}
	if len(e.Name) > MaxNameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(e.Name))
	}
	if !utf8.ValidString(e.Name) {
		return nil, fmt.Errorf("%w: name %q is not UTF-8", ErrUnsafePath, e.Name)
	}

	buf := make([]byte, EntrySize(len(e.Name)))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(e.Name)))
	n := 2 + copy(buf[2:], e.Name)
	binary.LittleEndian.PutUint64(buf[n:], e.OriginalSize)
	binary.LittleEndian.PutUint64(buf[n+8:], e.CompressedSize)
	binary.LittleEndian.PutUint32(buf[n+16:], e.Checksum)
	binary.LittleEndian.PutUint64(buf[n+20:], e.DataOffset)
	return buf, nil
}

// DecodeEntry reads one directory record from r. It reads exactly
// EntrySize(nameLength) bytes and never more. Empty names and names that are
// not UTF-8 are ErrCorrupt.
func DecodeEntry(r io.Reader) (FileEntry, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return FileEntry{}, readErr("read name length", err)
	}
	nameLen := int(binary.LittleEndian.Uint16(lenBuf[:]))
	if nameLen == 0 {
		return FileEntry{}, fmt.Errorf("%w: empty entry name", ErrCorrupt)
	}

	rest := make([]byte, nameLen+entryFixedSize-2)
	if _, err := io.ReadFull(r, rest); err != nil {
		return FileEntry{}, readErr("read entry", err)
	}

	if !utf8.Valid(rest[:nameLen]) {
		return FileEntry{}, fmt.Errorf("%w: entry name %q is not UTF-8", ErrCorrupt, rest[:nameLen])
	}
	fixed := rest[nameLen:]
	return FileEntry{
		Name:           string(rest[:nameLen]),
		OriginalSize:   binary.LittleEndian.Uint64(fixed[0:8]),
		CompressedSize: binary.LittleEndian.Uint64(fixed[8:16]),
		Checksum:       binary.LittleEndian.Uint32(fixed[16:20]),
		DataOffset:     binary.LittleEndian.Uint64(fixed[20:28]),
	}, nil
}

// EncodeTrailer returns the on-disk trailer.
func EncodeTrailer(t Trailer) []byte {
	buf := make([]byte, TrailerSize)
	buf[0] = byte(t.Compression)
	binary.LittleEndian.PutUint64(buf[1:], t.DirectoryOffset)
	return buf
}

// DecodeTrailer parses the trailer and checks the compression scheme is known.
func DecodeTrailer(b []byte) (Trailer, error) {
	if len(b) < TrailerSize {
		return Trailer{}, fmt.Errorf("%w: trailer is %d bytes, need %d", ErrTruncated, len(b), TrailerSize)
	}
	t := Trailer{
		Compression:     CompressionScheme(b[0]),
		DirectoryOffset: binary.LittleEndian.Uint64(b[1:TrailerSize]),
	}
	if err := t.Compression.Valid(); err != nil {
		return Trailer{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return t, nil
}

// readErr maps a short read to ErrTruncated and anything else to ErrIO.
func readErr(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, what, err)
}
