// Package fingerprint computes BLAKE3 content fingerprints for change
// detection and short labels for externalized content.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ShortLength is the number of hex characters kept by Short.
const ShortLength = 12

// Of returns the full hex BLAKE3 digest of data.
func Of(data []byte) string {
	sum := blake3.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// Short returns a truncated digest used in diagnostics and metadata labels.
func Short(data []byte) string {
	return Of(data)[:ShortLength]
}

// File hashes the file at path, streaming its content.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return Reader(file)
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (string, error) {
	hasher := blake3.New()

	_, err := io.Copy(hasher, r)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
