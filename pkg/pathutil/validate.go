// Package pathutil provides path validation and normalization for
// baseline keys.
package pathutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/vigil-project/vigil/pkg/errclass"
)

// Relative converts an absolute event path into the normalized
// relative key used by the baseline. The result is NFC-normalized and
// slash-separated; paths outside root are rejected.
func Relative(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errclass.ErrPathEscape.WithMessagef("relativize %s: %v", abs, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errclass.ErrPathEscape.WithMessagef("path escapes monitored root: %s", abs)
	}
	return norm.NFC.String(rel), nil
}

// ValidateRel checks that a baseline key read from disk is safe to use
// without touching anything outside the monitored root.
func ValidateRel(rel string) error {
	if rel == "" {
		return errclass.ErrNameInvalid.WithMessage("path must not be empty")
	}
	if strings.HasPrefix(rel, "/") {
		return errclass.ErrPathEscape.WithMessagef("path must be relative: %s", rel)
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return errclass.ErrPathEscape.WithMessagef("path must not contain '..': %s", rel)
		}
	}
	for _, r := range rel {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("path must not contain control characters: %q", rel)
		}
	}
	return nil
}

// HasSuffixFold reports whether path ends with suffix, ASCII
// case-insensitively. Used by the extension filter.
func HasSuffixFold(path, suffix string) bool {
	if len(suffix) > len(path) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(suffix):], suffix)
}
