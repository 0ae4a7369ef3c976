package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DigestFile computes the SHA-256 digest of a file, returning the lowercase
// hex encoding and the file size. The pipeline computes this once per
// artifact; both the integrity and attestation stages reuse the result.
func DigestFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("hash artifact: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// DigestBytes computes the SHA-256 digest of a byte slice as lowercase hex.
func DigestBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
