package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// Reader lists, extracts and verifies archives. A Reader holds only
// configuration; every call opens, parses and closes the archive itself.
type Reader struct {
	opts options
}

// NewReader returns a Reader configured by opts.
func NewReader(opts ...Option) *Reader {
	return &Reader{opts: newOptions(opts)}
}

// archive is one open archive for the duration of a single call.
type archive struct {
	f       *os.File
	size    int64
	header  Header
	trailer Trailer
	entries []FileEntry
}

// List returns the directory of the archive at path, in creation order.
func (r *Reader) List(path string) ([]FileEntry, error) {
	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.f.Close()
	return a.entries, nil
}

// Extract writes every entry of the archive at path below destination. An
// empty destination means the current directory.
func (r *Reader) Extract(path, destination string) (Result, error) {
	return r.run(path, extractTo(destination), nil)
}

// ExtractFiles writes the entries whose names appear in names below
// destination. Names that are not in the archive are ignored; the Result
// counts only entries that matched.
func (r *Reader) ExtractFiles(path string, names []string, destination string) (Result, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	return r.run(path, extractTo(destination), func(e FileEntry) bool {
		_, ok := want[e.Name]
		return ok
	})
}

// Verify decompresses every entry and checks its size and checksum without
// writing anything.
func (r *Reader) Verify(path string) (Result, error) {
	return r.run(path, verifyOnly, nil)
}

// output says where run sends decoded entries.
type output struct {
	verify      bool
	destination string
}

var verifyOnly = output{verify: true}

func extractTo(destination string) output {
	if destination == "" {
		destination = "."
	}
	return output{destination: destination}
}

// run is shared by the extract and verify operations. Per-entry failures are
// recorded in the Result; errors that make the rest of the archive
// untrustworthy, or that stop anything more from being written, are returned.
func (r *Reader) run(path string, to output, want func(FileEntry) bool) (Result, error) {
	a, err := openArchive(path)
	if err != nil {
		return Result{}, err
	}
	defer a.f.Close()

	var selected []FileEntry
	var totalSize uint64
	for _, e := range a.entries {
		if want == nil || want(e) {
			selected = append(selected, e)
			totalSize += e.OriginalSize
		}
	}
	res := Result{Requested: len(selected)}

	label := "Verifying"
	if !to.verify {
		label = "Extracting"
		if err := os.MkdirAll(to.destination, 0755); err != nil {
			return res, ioErr("create destination", err)
		}
	}
	r.opts.progress.Start(label, totalSize)
	defer r.opts.progress.Finish()

	for _, e := range selected {
		if to.verify {
			err = a.decode(e, io.Discard, r.opts.progress)
		} else {
			err = r.extractEntry(a, e, to.destination)
		}
		if err != nil {
			if errors.Is(err, ErrIO) {
				return res, fmt.Errorf("entry %q: %w", e.Name, err)
			}
			r.opts.logger.Warn("skipping entry", "name", e.Name, "error", err)
			res.fail(e.Name, err)
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// extractEntry decodes e into a temporary file beside its target and renames
// it into place once size and checksum are confirmed. On any failure the
// target is left untouched.
func (r *Reader) extractEntry(a *archive, e FileEntry, destination string) error {
	target, err := SafeJoin(destination, e.Name)
	if err != nil {
		return err
	}
	if err := checkParents(destination, e.Name); err != nil {
		return err
	}
	if info, err := os.Lstat(target); err == nil {
		if !r.opts.overwrite {
			return fmt.Errorf("%w: %s", ErrExists, target)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s", ErrNotRegular, target)
		}
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioErr("create parent directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".krar-*.tmp")
	if err != nil {
		return ioErr("create temporary file", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := a.decode(e, bw, r.opts.progress); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return ioErr("write "+target, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close "+target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return ioErr("rename "+target, err)
	}
	committed = true
	return nil
}

// openArchive opens path and parses its header, trailer and directory. No
// payload byte is read.
func openArchive(path string) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, ioErr("open archive", err)
	}
	a, err := readDirectory(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// readDirectory validates the archive structure. Everything it returns an
// error for is fatal: past that point no offset in the file can be trusted.
func readDirectory(f *os.File) (*archive, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, ioErr("stat archive", err)
	}
	a := &archive{f: f, size: info.Size()}

	hb := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, hb); err != nil {
		return nil, readErr("read header", err)
	}
	if a.header, err = DecodeHeader(hb); err != nil {
		return nil, err
	}

	if a.size < HeaderSize+TrailerSize {
		return nil, fmt.Errorf("%w: archive is %d bytes, too short for a trailer", ErrTruncated, a.size)
	}
	tb := make([]byte, TrailerSize)
	if _, err := f.ReadAt(tb, a.size-TrailerSize); err != nil {
		return nil, readErr("read trailer", err)
	}
	if a.trailer, err = DecodeTrailer(tb); err != nil {
		return nil, err
	}

	dirStart := a.trailer.DirectoryOffset
	dirEnd := uint64(a.size - TrailerSize)
	if dirStart < HeaderSize || dirStart > dirEnd {
		return nil, fmt.Errorf("%w: directory offset %d outside [%d, %d]", ErrCorrupt, dirStart, HeaderSize, dirEnd)
	}
	if uint64(a.header.FileCount)*uint64(EntrySize(0)) > dirEnd-dirStart {
		return nil, fmt.Errorf("%w: directory of %d bytes cannot hold %d entries",
			ErrTruncated, dirEnd-dirStart, a.header.FileCount)
	}

	dr := bufio.NewReader(io.NewSectionReader(f, int64(dirStart), int64(dirEnd-dirStart)))
	a.entries = make([]FileEntry, 0, a.header.FileCount)
	for i := uint32(0); i < a.header.FileCount; i++ {
		e, err := DecodeEntry(dr)
		if err != nil {
			return nil, fmt.Errorf("directory entry %d: %w", i, err)
		}
		a.entries = append(a.entries, e)
	}
	if _, err := dr.ReadByte(); err == nil {
		return nil, fmt.Errorf("%w: unexpected bytes after %d directory entries", ErrCorrupt, a.header.FileCount)
	} else if err != io.EOF {
		return nil, ioErr("read directory", err)
	}

	if err := checkRanges(a.entries, dirStart); err != nil {
		return nil, err
	}
	return a, nil
}

// checkRanges ensures every payload lies between the header and the
// directory and that no two payloads overlap.
func checkRanges(entries []FileEntry, dirStart uint64) error {
	sorted := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.DataOffset < HeaderSize || e.End() < e.DataOffset || e.End() > dirStart {
			return fmt.Errorf("%w: payload of %q at [%d, +%d) outside [%d, %d)",
				ErrCorrupt, e.Name, e.DataOffset, e.CompressedSize, HeaderSize, dirStart)
		}
		if e.CompressedSize > 0 {
			sorted = append(sorted, e)
		}
	}
	slices.SortFunc(sorted, func(x, y FileEntry) int {
		switch {
		case x.DataOffset < y.DataOffset:
			return -1
		case x.DataOffset > y.DataOffset:
			return 1
		}
		return 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].End() > sorted[i].DataOffset {
			return fmt.Errorf("%w: payloads of %q and %q overlap", ErrCorrupt, sorted[i-1].Name, sorted[i].Name)
		}
	}
	return nil
}

// decode streams the payload of e into w, checking that it decompresses to
// exactly OriginalSize bytes with the recorded checksum. Failures to read the
// archive or to write w are ErrIO; anything wrong with the payload itself is
// ErrCorrupt or ErrChecksumMismatch.
func (a *archive) decode(e FileEntry, w io.Writer, progress io.Writer) error {
	sink := &sinkWriter{W: w}
	sum := NewChecksum()
	out := io.MultiWriter(sink, sum, progress)

	if e.CompressedSize == 0 {
		if e.OriginalSize != 0 {
			return fmt.Errorf("%w: no payload for %d bytes", ErrCorrupt, e.OriginalSize)
		}
	} else {
		src := &sourceReader{R: io.NewSectionReader(a.f, int64(e.DataOffset), int64(e.CompressedSize))}
		zr, err := a.trailer.Compression.Reader(src)
		if err != nil {
			return err
		}
		defer zr.Close()

		n, err := io.CopyN(out, zr, int64(e.OriginalSize))
		switch {
		case src.Err != nil:
			return ioErr("read payload", src.Err)
		case sink.Err != nil:
			return ioErr("write output", sink.Err)
		case err == io.EOF:
			return fmt.Errorf("%w: payload decodes to %d bytes, want %d", ErrCorrupt, n, e.OriginalSize)
		case err != nil:
			return payloadErr(err)
		}

		var extra [1]byte
		m, err := io.ReadFull(zr, extra[:])
		switch {
		case src.Err != nil:
			return ioErr("read payload", src.Err)
		case m > 0:
			return fmt.Errorf("%w: payload decodes to more than %d bytes", ErrCorrupt, e.OriginalSize)
		case err != io.EOF:
			return payloadErr(err)
		}
	}

	if got := sum.Sum32(); got != e.Checksum {
		return fmt.Errorf("%w: crc32 %08x, want %08x", ErrChecksumMismatch, got, e.Checksum)
	}
	return nil
}

// sinkWriter remembers the first error returned by W.
type sinkWriter struct {
	W   io.Writer
	Err error
}

func (sw *sinkWriter) Write(p []byte) (int, error) {
	n, err := sw.W.Write(p)
	if err != nil && sw.Err == nil {
		sw.Err = err
	}
	return n, err
}
