package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"

	"krar/pkg/core"
)

// listEntry is the machine-readable form of a directory entry.
type listEntry struct {
	Name           string `json:"name" cbor:"name"`
	OriginalSize   uint64 `json:"original_size" cbor:"original_size"`
	CompressedSize uint64 `json:"compressed_size" cbor:"compressed_size"`
	Checksum       uint32 `json:"crc32" cbor:"crc32"`
	DataOffset     uint64 `json:"data_offset" cbor:"data_offset"`
}

// cborEncMode encodes listings with Core Deterministic Encoding, so the same
// archive always lists to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("krar: CBOR encoder initialization failed: " + err.Error())
	}
}

func writeListing(w io.Writer, format string, entries []core.FileEntry, rawBytes bool) error {
	switch format {
	case "text":
		return writeText(w, entries, rawBytes)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toListEntries(entries))
	case "cbor":
		data, err := cborEncMode.Marshal(toListEntries(entries))
		if err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, format)
	}
}

func toListEntries(entries []core.FileEntry) []listEntry {
	out := make([]listEntry, len(entries))
	for i, e := range entries {
		out[i] = listEntry{
			Name:           e.Name,
			OriginalSize:   e.OriginalSize,
			CompressedSize: e.CompressedSize,
			Checksum:       e.Checksum,
			DataOffset:     e.DataOffset,
		}
	}
	return out
}

func writeText(w io.Writer, entries []core.FileEntry, rawBytes bool) error {
	size := humanize.IBytes
	if rawBytes {
		size = func(n uint64) string { return strconv.FormatUint(n, 10) }
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "(no files)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tPACKED\tRATIO\tCRC32")
	var total, packed uint64
	for _, e := range entries {
		total += e.OriginalSize
		packed += e.CompressedSize
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%08x\n", e.Name, size(e.OriginalSize), size(e.CompressedSize),
			ratio(e.OriginalSize, e.CompressedSize), e.Checksum)
	}
	fmt.Fprintf(tw, "%d files\t%s\t%s\t%s\t\n", len(entries), size(total), size(packed), ratio(total, packed))
	return tw.Flush()
}

func ratio(original, compressed uint64) string {
	if original == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(compressed)/float64(original)*100)
}
