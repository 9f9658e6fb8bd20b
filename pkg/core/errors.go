package core

import "errors"

// Error kinds reported by the reader and writer. Returned errors wrap one of
// these, so callers should match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTruncated          = errors.New("truncated")
	ErrCorrupt            = errors.New("corrupt archive")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrUnsafePath         = errors.New("unsafe path")
	ErrIO                 = errors.New("i/o failure")

	ErrNotRegular    = errors.New("not a regular file")
	ErrDuplicateName = errors.New("duplicate name")
	ErrNameTooLong   = errors.New("name too long")
	ErrExists        = errors.New("file exists")
)
