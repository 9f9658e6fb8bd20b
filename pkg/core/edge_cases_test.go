package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLargeNumberOfFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	const count = 1000
	files := make([]testFile, count)
	for i := range files {
		files[i] = testFile{fmt.Sprintf("file_%04d.txt", i), []byte(fmt.Sprintf("content of file %d", i))}
	}
	archive := createArchive(t, files)

	entries, err := NewReader().List(archive)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != count {
		t.Fatalf("List returned %d entries, want %d", len(entries), count)
	}

	out := t.TempDir()
	res, err := NewReader().Extract(archive, out)
	if err != nil || !res.Complete() || res.Succeeded != count {
		t.Fatalf("Extract = %+v, %v", res, err)
	}
	assertExtracted(t, out, files)
}

func TestUnicodeNames(t *testing.T) {
	files := []testFile{
		{"файл.txt", []byte("Russian")},
		{"文件.txt", []byte("Chinese")},
		{"ファイル.txt", []byte("Japanese")},
		{"émoji-🎉.txt", []byte("Emoji")},
		{"with spaces.txt", []byte("Spaces")},
	}
	archive := createArchive(t, files)

	entries, err := NewReader().List(archive)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i, e := range entries {
		if e.Name != files[i].name {
			t.Errorf("entry %d name = %q, want %q", i, e.Name, files[i].name)
		}
	}

	out := t.TempDir()
	if _, err := NewReader().Extract(archive, out); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	assertExtracted(t, out, files)
}

func TestEmptyFilesStoreNoPayload(t *testing.T) {
	files := []testFile{{"a.empty", nil}, {"b.empty", []byte{}}, {"c.txt", []byte("c")}}
	archive := createArchive(t, files)

	entries, err := NewReader().List(archive)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries[:2] {
		if e.OriginalSize != 0 || e.CompressedSize != 0 || e.Checksum != 0 {
			t.Errorf("%s: %+v, want zero sizes and checksum", e.Name, e)
		}
		if e.DataOffset != HeaderSize {
			t.Errorf("%s: DataOffset = %d, want %d", e.Name, e.DataOffset, HeaderSize)
		}
	}

	out := t.TempDir()
	if _, err := NewReader().Extract(archive, out); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(out, "a.empty"))
	if err != nil || info.Size() != 0 {
		t.Fatalf("a.empty: %v, %v", info, err)
	}
}
