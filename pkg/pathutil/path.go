package pathutil

import (
	"fmt"
	"path"
	"strings"
)

// Normalize canonicalizes a directory path into the form used as a cache
// key: forward slashes, a single leading slash, no trailing slash (except
// for the root itself) and no "." or ".." elements.
//
// Example usage:
//
//	key := pathutil.Normalize("objekte/haus-1/vertraege/")
//	// "/objekte/haus-1/vertraege"
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "." {
		return "/"
	}
	return p
}

// Parent returns the normalized parent directory of p, and false when p
// is the root and has no parent.
func Parent(p string) (string, bool) {
	p = Normalize(p)
	if p == "/" {
		return "", false
	}
	return path.Dir(p), true
}

// Validate checks that a directory path is safe to use as a cache key.
// It rejects empty paths and paths that still contain traversal
// sequences after cleaning.
func Validate(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.Contains(path.Clean(strings.ReplaceAll(p, "\\", "/")), "..") {
		return fmt.Errorf("path contains directory traversal: %s", p)
	}
	return nil
}

// Base returns the final element of a normalized path, "/" for the root.
func Base(p string) string {
	return path.Base(Normalize(p))
}
