package verify

import "fmt"

// ChecksumMismatchError is returned for any integrity failure: a missing
// manifest entry, a digest mismatch, or an unreadable manifest. There is no
// skip path inside this package; bypass exists only as an explicit flag at
// the pipeline boundary.
type ChecksumMismatchError struct {
	Asset  string
	Want   string // expected digest, empty when no entry was found
	Got    string
	Reason string
}

func (e *ChecksumMismatchError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("checksum verification failed for %s: %s", e.Asset, e.Reason)
	}
	return fmt.Sprintf("checksum mismatch for %s:\nexpected: %s\nactual:   %s", e.Asset, e.Want, e.Got)
}

// DuplicateManifestEntryError is returned when a manifest lists two
// different digests for the same filename.
type DuplicateManifestEntryError struct {
	Filename string
	First    string
	Second   string
}

func (e *DuplicateManifestEntryError) Error() string {
	return fmt.Sprintf("manifest has conflicting entries for %s: %s vs %s", e.Filename, e.First, e.Second)
}
