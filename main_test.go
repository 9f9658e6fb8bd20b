package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"krar/pkg/config"
)

type cliFixture struct {
	dir     string
	sources []string
	archive string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	f := &cliFixture{dir: dir, archive: filepath.Join(dir, "test.krar")}
	for name, content := range map[string]string{
		"one.txt": "first file\n",
		"two.txt": strings.Repeat("second file\n", 100),
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		f.sources = append(f.sources, path)
	}
	return f
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (f *cliFixture) create(t *testing.T, extra ...string) {
	t.Helper()
	args := append([]string{"create"}, extra...)
	args = append(args, f.archive)
	args = append(args, f.sources...)
	if _, stderr, err := runCLI(t, args...); err != nil {
		t.Fatalf("create failed: %v\n%s", err, stderr)
	}
}

func TestCreateExtractCommands(t *testing.T) {
	for _, compression := range []string{"zstd", "lz4", "none"} {
		t.Run(compression, func(t *testing.T) {
			f := newCLIFixture(t)
			f.create(t, "--compression", compression, "--level", "fastest")

			out := filepath.Join(f.dir, "out")
			stdout, _, err := runCLI(t, "x", f.archive, out)
			if err != nil {
				t.Fatalf("extract failed: %v", err)
			}
			if !strings.Contains(stdout, "Extracted 2 of 2 files") {
				t.Fatalf("extract output = %q", stdout)
			}
			for _, src := range f.sources {
				want, _ := os.ReadFile(src)
				got, err := os.ReadFile(filepath.Join(out, filepath.Base(src)))
				if err != nil || !bytes.Equal(got, want) {
					t.Fatalf("%s: extracted %q, %v", src, got, err)
				}
			}
		})
	}
}

func TestListFormats(t *testing.T) {
	f := newCLIFixture(t)
	f.create(t)

	stdout, _, err := runCLI(t, "list", f.archive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"NAME", "one.txt", "two.txt", "2 files"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("text listing missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, "l", "--format", "json", f.archive)
	if err != nil {
		t.Fatalf("list json failed: %v", err)
	}
	var fromJSON []listEntry
	if err := json.Unmarshal([]byte(stdout), &fromJSON); err != nil {
		t.Fatalf("decode json listing: %v", err)
	}

	stdout, _, err = runCLI(t, "l", "-f", "cbor", f.archive)
	if err != nil {
		t.Fatalf("list cbor failed: %v", err)
	}
	var fromCBOR []listEntry
	if err := cbor.Unmarshal([]byte(stdout), &fromCBOR); err != nil {
		t.Fatalf("decode cbor listing: %v", err)
	}

	if len(fromJSON) != 2 || len(fromCBOR) != 2 {
		t.Fatalf("listings have %d json and %d cbor entries, want 2", len(fromJSON), len(fromCBOR))
	}
	for i := range fromJSON {
		if fromJSON[i] != fromCBOR[i] {
			t.Errorf("entry %d: json %+v != cbor %+v", i, fromJSON[i], fromCBOR[i])
		}
	}
	if fromJSON[0].OriginalSize == 0 || fromJSON[0].Checksum == 0 {
		t.Errorf("json entry missing fields: %+v", fromJSON[0])
	}

	if _, _, err := runCLI(t, "list", "--format", "xml", f.archive); !errors.Is(err, errUsage) {
		t.Fatalf("unknown format error = %v, want errUsage", err)
	}
}

func TestListBytes(t *testing.T) {
	f := newCLIFixture(t)
	f.create(t, "-c", "none")
	stdout, _, err := runCLI(t, "list", "--bytes", f.archive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(stdout, "1211") {
		t.Fatalf("raw byte total missing from listing:\n%s", stdout)
	}
}

func TestExtractSelectedFiles(t *testing.T) {
	f := newCLIFixture(t)
	f.create(t)
	out := filepath.Join(f.dir, "out")

	stdout, _, err := runCLI(t, "extract", "-f", "two.txt", "--file", "missing.txt", f.archive, out)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.Contains(stdout, "Extracted 1 of 1 files") {
		t.Fatalf("extract output = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "one.txt")); !os.IsNotExist(err) {
		t.Fatal("one.txt should not be extracted")
	}
}

func TestNoOverwriteExitsIncomplete(t *testing.T) {
	f := newCLIFixture(t)
	f.create(t)
	out := filepath.Join(f.dir, "out")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "one.txt"), []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCLI(t, "x", "--no-overwrite", f.archive, out)
	if !errors.Is(err, errIncomplete) || exitCode(err) != 2 {
		t.Fatalf("extract error = %v, want incomplete", err)
	}
	if !strings.Contains(stdout, "failed: one.txt") {
		t.Fatalf("extract output = %q", stdout)
	}
	got, _ := os.ReadFile(filepath.Join(out, "one.txt"))
	if string(got) != "keep" {
		t.Fatalf("one.txt was overwritten with %q", got)
	}
}

func TestCreateMissingSource(t *testing.T) {
	f := newCLIFixture(t)
	f.sources = append(f.sources, filepath.Join(f.dir, "missing.txt"))
	_, stderr, err := runCLI(t, append([]string{"c", f.archive}, f.sources...)...)
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("create error = %v, want incomplete", err)
	}
	if !strings.Contains(stderr, "skipping source") {
		t.Fatalf("expected a warning on stderr, got %q", stderr)
	}
	stdout, _, err := runCLI(t, "l", "-f", "json", f.archive)
	if err != nil {
		t.Fatal(err)
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil || len(entries) != 2 {
		t.Fatalf("listing = %+v, %v", entries, err)
	}
}

func TestTestCommand(t *testing.T) {
	f := newCLIFixture(t)
	f.create(t)
	stdout, _, err := runCLI(t, "t", f.archive)
	if err != nil {
		t.Fatalf("test failed: %v", err)
	}
	if !strings.Contains(stdout, "Verified 2 of 2 files") {
		t.Fatalf("test output = %q", stdout)
	}

	stdout, _, err = runCLI(t, "test", "-q", f.archive)
	if err != nil || stdout != "" {
		t.Fatalf("quiet test = %q, %v", stdout, err)
	}
}

func TestConfigFile(t *testing.T) {
	f := newCLIFixture(t)
	cfgPath := filepath.Join(f.dir, "krar.yaml")
	if err := os.WriteFile(cfgPath, []byte("compression: none\nprogress: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvVar, cfgPath)

	stdout, _, err := runCLI(t, append([]string{"create", f.archive}, f.sources...)...)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(stdout, "Compressing") {
		t.Fatalf("config progress setting ignored: %q", stdout)
	}

	stdout, _, err = runCLI(t, "list", "-b", f.archive)
	if err != nil {
		t.Fatal(err)
	}
	// Stored uncompressed, so the packed total equals the original total.
	if !strings.Contains(stdout, "100%") {
		t.Fatalf("expected uncompressed entries:\n%s", stdout)
	}

	if err := os.WriteFile(cfgPath, []byte("compression: rar\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, "list", f.archive); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestUsageErrors(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	tests := [][]string{
		nil,
		{"frobnicate"},
		{"create"},
		{"list"},
		{"extract"},
		{"extract", "a", "b", "c"},
		{"test"},
		{"list", "--no-such-flag", "a.krar"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, _, err := runCLI(t, args...)
			if !errors.Is(err, errUsage) {
				t.Fatalf("run(%q) error = %v, want errUsage", args, err)
			}
			if exitCode(err) != 1 {
				t.Fatalf("exit code = %d, want 1", exitCode(err))
			}
		})
	}
}

func TestHelp(t *testing.T) {
	for _, args := range [][]string{{"help"}, {"h"}, {"--help"}, {"create", "--help"}} {
		stdout, stderr, err := runCLI(t, args...)
		if err != nil {
			t.Fatalf("run(%q) = %v", args, err)
		}
		if !strings.Contains(stdout+stderr, "compression") {
			t.Fatalf("run(%q) printed no usage", args)
		}
	}
}

func TestUsageListsVerbAliases(t *testing.T) {
	stdout, _, err := runCLI(t, "help")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"c, create", "l, list", "x, extract", "t, test", "h, help"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("usage missing %q:\n%s", want, stdout)
		}
	}
}

func TestMissingArchiveFails(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	_, _, err := runCLI(t, "list", filepath.Join(t.TempDir(), "nope.krar"))
	if err == nil || errors.Is(err, errIncomplete) {
		t.Fatalf("list of missing archive = %v", err)
	}
}
