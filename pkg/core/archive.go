// Package core implements reading and writing of KRar archives.
//
// An archive is a fixed header, the compressed payload of every entry stored
// back to back, a directory describing each entry, and a trailer that records
// the payload compression scheme and the absolute offset of the directory:
//
//	Header:    signature:u32 | version:u8 | fileCount:u32
//	Payloads:  concatenated compressed blocks, creation order
//	Directory: fileCount × { nameLength:u16 | name | originalSize:u64 |
//	                         compressedSize:u64 | checksum:u32 | dataOffset:u64 }
//	Trailer:   compression:u8 | directoryOffset:u64
//
// All integers are little-endian.
package core

// Constants for archive format
const (
	Signature uint32 = 0x5241524B // "KRAR" on disk
	Version   uint8  = 1          // Archive format version

	HeaderSize  = 4 + 1 + 4 // signature + version + fileCount
	TrailerSize = 1 + 8     // compression + directoryOffset

	// entryFixedSize is the width of every directory entry field except the name.
	entryFixedSize = 2 + 8 + 8 + 4 + 8

	// MaxNameLength is the longest name a directory entry can carry.
	MaxNameLength = 1<<16 - 1
)

// Header is the fixed-size record at the start of every archive.
type Header struct {
	Signature uint32
	Version   uint8
	FileCount uint32
}

// FileEntry describes one archived file in the directory.
type FileEntry struct {
	Name           string // Relative, slash-separated output path
	OriginalSize   uint64 // Size of the decompressed payload
	CompressedSize uint64 // Size of the stored payload
	Checksum       uint32 // CRC-32 of the decompressed payload
	DataOffset     uint64 // Absolute offset of the stored payload
}

// End returns the offset one past the last payload byte of the entry.
func (e FileEntry) End() uint64 { return e.DataOffset + e.CompressedSize }

// Trailer is the fixed-size record at the end of every archive.
type Trailer struct {
	Compression     CompressionScheme
	DirectoryOffset uint64
}
