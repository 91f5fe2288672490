// internal/utils/hash.go
package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

const hashChunkSize = 10240

// HashStream consumes reader in bounded chunks and returns the hex digest
// computed by h. The body is never materialised in memory.
func HashStream(reader io.Reader, h hash.Hash) (string, error) {
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, reader, buf); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MD5Stream returns the MD5 hex digest of reader.
func MD5Stream(reader io.Reader) (string, error) {
	return HashStream(reader, md5.New())
}

// MD5File returns the MD5 hex digest of the file at path.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return MD5Stream(f)
}

// SHA256File returns the SHA-256 hex digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashStream(f, sha256.New())
}
