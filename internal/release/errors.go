package release

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a reference resolves to no release or a
// required asset pattern matches nothing.
type NotFoundError struct {
	Ref     string
	Pattern string // empty when the release itself was not found
}

func (e *NotFoundError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("release %s not found", e.Ref)
	}
	return fmt.Sprintf("release %s has no asset matching %q", e.Ref, e.Pattern)
}

// AmbiguousAssetError is returned when more than one asset matches a role's
// pattern. The locator rejects rather than guessing.
type AmbiguousAssetError struct {
	Ref     string
	Pattern string
	Matches []string
}

func (e *AmbiguousAssetError) Error() string {
	return fmt.Sprintf("release %s: pattern %q matches %d assets (%s), refusing to guess",
		e.Ref, e.Pattern, len(e.Matches), strings.Join(e.Matches, ", "))
}
