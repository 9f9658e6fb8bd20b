package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionScheme identifies how entry payloads are compressed. The scheme
// is stored in the archive trailer, so these values are part of the format.
type CompressionScheme uint8

const (
	// CompressionNone stores payloads as-is. Useful for content that is
	// already compressed.
	CompressionNone CompressionScheme = 0

	// CompressionLZ4 stores each payload as an LZ4 frame.
	CompressionLZ4 CompressionScheme = 1

	// CompressionZstd stores each payload as a Zstandard stream. This is
	// the default.
	CompressionZstd CompressionScheme = 2
)

// String returns the name used on the command line and in config files.
func (c CompressionScheme) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompressionScheme parses the name returned by String.
func ParseCompressionScheme(name string) (CompressionScheme, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression scheme: %q", name)
	}
}

// Valid returns nil iff the scheme is known.
func (c CompressionScheme) Valid() error {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return nil
	}
	return fmt.Errorf("unknown compression scheme 0x%x", uint8(c))
}

// Level trades compression speed for ratio. Each scheme maps it onto its own
// native levels; CompressionNone ignores it.
type Level uint8

const (
	LevelDefault Level = iota
	LevelFastest
	LevelBetter
	LevelBest
)

func (l Level) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelFastest:
		return "fastest"
	case LevelBetter:
		return "better"
	case LevelBest:
		return "best"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// ParseLevel parses the name returned by Level.String.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "default", "":
		return LevelDefault, nil
	case "fastest":
		return LevelFastest, nil
	case "better":
		return LevelBetter, nil
	case "best":
		return LevelBest, nil
	default:
		return 0, fmt.Errorf("unknown compression level: %q", name)
	}
}

func (l Level) zstd() zstd.EncoderLevel {
	switch l {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBetter:
		return zstd.SpeedBetterCompression
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (l Level) lz4() lz4.CompressionLevel {
	switch l {
	case LevelFastest:
		return lz4.Fast
	case LevelBetter:
		return lz4.Level5
	case LevelBest:
		return lz4.Level9
	default:
		return lz4.Level1
	}
}

// Writer returns a compressing writer for the scheme. Closing it flushes the
// compressed stream but does not close w.
func (c CompressionScheme) Writer(w io.Writer, level Level) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil

	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(level.lz4())); err != nil {
			return nil, fmt.Errorf("configure lz4 writer: %w", err)
		}
		return zw, nil

	case CompressionZstd:
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(level.zstd()),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("configure zstd writer: %w", err)
		}
		return zw, nil
	}
	return nil, c.Valid()
}

// Reader returns a decompressing reader for the scheme.
func (c CompressionScheme) Reader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil

	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("configure zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	}
	return nil, c.Valid()
}

// payloadErr classifies an error from a decompressing reader. A failed zstd
// frame checksum is also a checksum mismatch.
func payloadErr(err error) error {
	if errors.Is(err, zstd.ErrCRCMismatch) {
		return fmt.Errorf("%w: %w: %w", ErrChecksumMismatch, ErrCorrupt, err)
	}
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
