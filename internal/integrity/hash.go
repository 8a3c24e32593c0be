// Package integrity provides content hash computation for the baseline.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/vigil-project/vigil/pkg/model"
)

// HashFile computes the SHA-256 hash of a file's content, streaming so
// large files do not load into memory.
func HashFile(path string) (model.HashValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return model.HashValue(hex.EncodeToString(h.Sum(nil))), nil
}

// HashBytes computes the SHA-256 hash of a byte slice.
func HashBytes(data []byte) model.HashValue {
	sum := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(sum[:]))
}
