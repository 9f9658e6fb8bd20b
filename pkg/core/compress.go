package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// Writer creates archives. A Writer holds only configuration and may be
// reused for any number of Create calls.
type Writer struct {
	opts options
}

// NewWriter returns a Writer configured by opts.
func NewWriter(opts ...Option) *Writer {
	return &Writer{opts: newOptions(opts)}
}

// Create writes an archive holding sources, in order, to destination.
//
// Sources that do not exist, are not regular files, or would duplicate an
// earlier entry name are skipped and reported in the Result. Any other I/O
// failure aborts the call with an ErrIO error. The archive is written to a
// temporary file beside destination and renamed into place only once it is
// complete, so a failed Create never leaves a partial archive behind.
func (w *Writer) Create(sources []string, destination string) (Result, error) {
	res := Result{Requested: len(sources)}
	if err := w.opts.compression.Valid(); err != nil {
		return res, err
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, ioErr("create output directory", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".*.tmp")
	if err != nil {
		return res, ioErr("create output", err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	w.opts.progress.Start("Compressing", calculateTotalSize(sources))
	defer w.opts.progress.Finish()

	entries, err := w.writeArchive(f, sources, &res)
	if err != nil {
		return res, err
	}
	if err := f.Sync(); err != nil {
		return res, ioErr("sync output", err)
	}
	if err := f.Close(); err != nil {
		return res, ioErr("close output", err)
	}
	if err := os.Rename(f.Name(), destination); err != nil {
		return res, ioErr("rename output", err)
	}
	committed = true

	res.Succeeded = len(entries)
	w.opts.logger.Info("archive created", "path", destination,
		"entries", len(entries), "skipped", len(res.Failures), "compression", w.opts.compression)
	return res, nil
}

// calculateTotalSize sums the sizes of the sources that can be stat'ed.
func calculateTotalSize(sources []string) uint64 {
	var total uint64
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		total += uint64(info.Size())
	}
	return total
}

// writeArchive emits the whole archive to f. The header is reserved first and
// rewritten in place once the number of stored entries is known.
func (w *Writer) writeArchive(f *os.File, sources []string, res *Result) ([]FileEntry, error) {
	bw := bufio.NewWriterSize(f, 64*1024)
	cw := &countingWriter{W: bw}

	if _, err := cw.Write(EncodeHeader(0)); err != nil {
		return nil, ioErr("reserve header", err)
	}

	seen := make(map[string]struct{}, len(sources))
	var entries []FileEntry
	for _, src := range sources {
		entry, err := w.addFile(cw, src, seen)
		if err != nil {
			if errors.Is(err, ErrIO) {
				return nil, err
			}
			w.opts.logger.Warn("skipping source", "path", src, "error", err)
			res.fail(src, err)
			continue
		}
		seen[entry.Name] = struct{}{}
		entries = append(entries, entry)
	}
	if uint64(len(entries)) > math.MaxUint32 {
		return nil, fmt.Errorf("too many entries: %d", len(entries))
	}

	directoryOffset := cw.N
	for _, e := range entries {
		buf, err := EncodeEntry(e)
		if err != nil {
			return nil, fmt.Errorf("encode entry %q: %w", e.Name, err)
		}
		if _, err := cw.Write(buf); err != nil {
			return nil, ioErr("write directory", err)
		}
	}
	trailer := Trailer{Compression: w.opts.compression, DirectoryOffset: directoryOffset}
	if _, err := cw.Write(EncodeTrailer(trailer)); err != nil {
		return nil, ioErr("write trailer", err)
	}
	if err := bw.Flush(); err != nil {
		return nil, ioErr("flush output", err)
	}

	if _, err := f.WriteAt(EncodeHeader(uint32(len(entries))), 0); err != nil {
		return nil, ioErr("write header", err)
	}
	return entries, nil
}

// addFile streams one source through the checksum and the compressor into cw.
func (w *Writer) addFile(cw *countingWriter, src string, seen map[string]struct{}) (FileEntry, error) {
	info, err := os.Stat(src)
	if err != nil {
		return FileEntry{}, statErr(src, err)
	}
	if !info.Mode().IsRegular() {
		return FileEntry{}, fmt.Errorf("%w: %s", ErrNotRegular, src)
	}

	name := filepath.ToSlash(filepath.Base(src))
	if len(name) > MaxNameLength {
		return FileEntry{}, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	if !utf8.ValidString(name) {
		return FileEntry{}, fmt.Errorf("%w: name %q is not UTF-8", ErrUnsafePath, name)
	}
	if _, dup := seen[name]; dup {
		return FileEntry{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	in, err := os.Open(src)
	if err != nil {
		return FileEntry{}, statErr(src, err)
	}
	defer in.Close()

	entry := FileEntry{Name: name, DataOffset: cw.N}
	br := bufio.NewReader(in)
	if _, err := br.Peek(1); err == io.EOF {
		// Empty files store no payload bytes at all.
		return entry, nil
	} else if err != nil {
		return FileEntry{}, ioErr("read "+src, err)
	}

	zw, err := w.opts.compression.Writer(cw, w.opts.level)
	if err != nil {
		return FileEntry{}, err
	}
	sum := NewChecksum()
	n, err := io.Copy(zw, io.TeeReader(br, io.MultiWriter(sum, w.opts.progress)))
	if err != nil {
		return FileEntry{}, ioErr("compress "+src, err)
	}
	if err := zw.Close(); err != nil {
		return FileEntry{}, ioErr("finish "+src, err)
	}

	entry.OriginalSize = uint64(n)
	entry.CompressedSize = cw.N - entry.DataOffset
	entry.Checksum = sum.Sum32()
	return entry, nil
}

func statErr(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return ioErr("stat "+path, err)
}

func ioErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, what, err)
}
