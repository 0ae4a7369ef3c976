package verify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDigestFileDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.bin")
	if err := os.WriteFile(path, []byte("release archive content"), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	first, size, err := DigestFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != int64(len("release archive content")) {
		t.Errorf("size mismatch: got %d", size)
	}

	second, _, err := DigestFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("digest not deterministic: %s vs %s", first, second)
	}
	if first != DigestBytes([]byte("release archive content")) {
		t.Errorf("file and byte digests disagree")
	}
}

func TestDigestChangesWithOneBitMutation(t *testing.T) {
	content := []byte("release archive content")
	original := DigestBytes(content)

	mutated := make([]byte, len(content))
	copy(mutated, content)
	mutated[0] ^= 0x01

	if DigestBytes(mutated) == original {
		t.Error("one-bit mutation did not change the digest")
	}
}

func TestDigestFileMissing(t *testing.T) {
	_, _, err := DigestFile(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
