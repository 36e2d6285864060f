package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

var (
	// ErrPathEscape indicates the resolved path would escape the trusted root directory.
	ErrPathEscape = errors.New("path escapes base directory")
)

// ResolveWithin joins the provided path elements under the given base directory and ensures
// the resulting path never traverses outside of that base. The returned path is absolute.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	joined := filepath.Join(append([]string{cleanBase}, elems...)...)
	target, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}

	return target, nil
}

// CleanFilePath validates a user supplied file path (history file, export output) and
// returns its absolute form. Traversal segments and the filesystem root are rejected.
func CleanFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", sharedErrors.ErrInvalidPath)
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", sharedErrors.ErrInvalidPath, path)
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrInvalidPath, err)
	}

	cleanPath := filepath.Clean(absPath)
	if cleanPath == string(os.PathSeparator) {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrInvalidPath, path)
	}
	return cleanPath, nil
}
