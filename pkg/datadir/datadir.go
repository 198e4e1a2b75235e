// Package datadir confines the bot's runtime files to one directory.
package datadir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapes is returned for paths that leave the data directory.
var ErrEscapes = errors.New("path escapes data directory")

// Dir resolves file names relative to the data directory.
type Dir struct {
	root string
}

// New creates the data directory if needed.
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("data directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute data directory.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the absolute path of rel inside the data directory and
// creates its parent directories.
func (d *Dir) Path(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q: %w", rel, ErrEscapes)
	}
	full := filepath.Join(d.root, filepath.Clean(rel))
	if !d.Within(full) || full == d.root {
		return "", fmt.Errorf("%q: %w", rel, ErrEscapes)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	return full, nil
}

// Within reports whether target is inside the data directory.
func (d *Dir) Within(target string) bool {
	abs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	return abs == d.root || strings.HasPrefix(abs, d.root+string(filepath.Separator))
}
