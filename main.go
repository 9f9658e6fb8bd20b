package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

var (
	// errUsage is returned for malformed command lines.
	errUsage = errors.New("usage")
	// errIncomplete is returned when an operation skipped some items.
	errIncomplete = errors.New("incomplete")
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error from run to the process exit status: 2 when the
// operation finished but skipped items, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, errIncomplete) {
		return 2
	}
	return 1
}

// run dispatches one command line. The verbs and their one-letter aliases
// follow the usual archiver conventions.
func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return fmt.Errorf("%w: no command", errUsage)
	}

	var err error
	operation, rest := args[0], args[1:]
	switch strings.ToLower(operation) {
	case "c", "create":
		err = runCreate(rest, stdout, stderr)
	case "l", "list":
		err = runList(rest, stdout, stderr)
	case "x", "extract":
		err = runExtract(rest, stdout, stderr)
	case "t", "test":
		err = runTest(rest, stdout, stderr)
	case "h", "help", "-h", "--help":
		printUsage(stdout)
	default:
		printUsage(stderr)
		err = fmt.Errorf("%w: unknown command %q", errUsage, operation)
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

// printUsage prints the command-line usage information
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "KRar archive utility")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  krar c, create   [--compression zstd|lz4|none] [--level L] archive.krar [file...]")
	fmt.Fprintln(w, "  krar l, list     [--format text|json|cbor] archive.krar")
	fmt.Fprintln(w, "  krar x, extract  [--file name]... [--no-overwrite] archive.krar [destination]")
	fmt.Fprintln(w, "  krar t, test     archive.krar")
	fmt.Fprintln(w, "  krar h, help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprintln(w, "  --config path        YAML config file (default $KRAR_CONFIG)")
	fmt.Fprintln(w, "  --log-level level    debug, info, warn or error")
	fmt.Fprintln(w, "  --log-format format  text or json")
	fmt.Fprintln(w, "  --progress           print byte progress")
	fmt.Fprintln(w, "  -q, --quiet          print nothing on success")
}
