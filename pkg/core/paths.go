package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SafeJoin resolves an archive entry name against root. Entry names come
// from the archive and are untrusted: empty names, absolute paths, names that
// climb out of root, and names with backslashes or NUL bytes are rejected
// with ErrUnsafePath.
func SafeJoin(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnsafePath)
	}
	if strings.ContainsAny(name, "\\\x00") || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) || filepath.Clean(local) == "." {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(root, local), nil
}

// checkParents inspects the directories between root and the target of name
// that already exist. A symlink among them could lead outside root and is
// ErrUnsafePath; anything other than a directory is ErrNotRegular. Missing
// directories are fine, the extractor creates them.
func checkParents(root, name string) error {
	parts := strings.Split(filepath.Clean(filepath.FromSlash(name)), string(filepath.Separator))
	dir := root
	for _, p := range parts[:len(parts)-1] {
		dir = filepath.Join(dir, p)
		info, err := os.Lstat(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			return ioErr("inspect "+dir, err)
		case info.Mode()&fs.ModeSymlink != 0:
			return fmt.Errorf("%w: %q passes through symlink %s", ErrUnsafePath, name, dir)
		case !info.IsDir():
			return fmt.Errorf("%w: parent %s of %q is not a directory", ErrNotRegular, dir, name)
		}
	}
	return nil
}
