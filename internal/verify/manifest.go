// Package verify checks a downloaded archive against its checksum manifest
// and, optionally, a detached PGP signature over the manifest itself. All
// checks fail closed.
package verify

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// sha256HexLen is the length of a lowercase hex SHA-256 digest.
const sha256HexLen = 64

// Manifest maps exact asset filenames to lowercase hex digests.
type Manifest map[string]string

// ParseManifest parses a plain-text checksum manifest in the conventional
// "<hex-digest>  <filename>" format, one entry per line. Blank lines and
// comment lines are skipped; extra whitespace is tolerated. Conflicting
// duplicate entries for the same filename are rejected.
func ParseManifest(data []byte) (Manifest, error) {
	manifest := Manifest{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed manifest line: %q", line)
		}

		digest := strings.ToLower(fields[0])
		if !isHexDigest(digest, sha256HexLen) {
			return nil, fmt.Errorf("malformed digest in manifest line: %q", line)
		}

		// sha256sum binary-mode entries prefix the filename with "*"
		filename := strings.TrimPrefix(fields[len(fields)-1], "*")

		if existing, ok := manifest[filename]; ok {
			if existing != digest {
				return nil, &DuplicateManifestEntryError{
					Filename: filename,
					First:    existing,
					Second:   digest,
				}
			}
			continue
		}

		manifest[filename] = digest
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	if len(manifest) == 0 {
		return nil, fmt.Errorf("manifest contains no entries")
	}

	return manifest, nil
}

// Verify confirms that digest matches the manifest entry for the exact
// asset filename. Comparison is case-insensitive on the hex encoding.
func (m Manifest) Verify(assetName, digest string) error {
	want, ok := m[assetName]
	if !ok {
		return &ChecksumMismatchError{
			Asset:  assetName,
			Reason: "no manifest entry for this filename",
		}
	}

	if !strings.EqualFold(want, digest) {
		return &ChecksumMismatchError{
			Asset: assetName,
			Want:  want,
			Got:   strings.ToLower(digest),
		}
	}

	return nil
}

// isHexDigest reports whether value is valid hex of the expected length.
func isHexDigest(value string, expectedLen int) bool {
	if len(value) != expectedLen {
		return false
	}
	for _, ch := range value {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}
	return true
}
