// Package profile loads declarative install profiles written in Lua.
//
// A profile declares which repository and release to install and how to
// verify it. Profiles run in a sandboxed Lua VM with a read-only
// "platform" global, so a single profile can pick asset patterns per OS
// and architecture without being able to touch the host.
package profile

import (
	"fmt"
	"strings"
)

// Profile is the extracted, validated result of running a profile script.
type Profile struct {
	Repository string // "owner/name"
	Tag        string // empty means latest release

	Archive     string // asset name pattern for the package archive
	Manifest    string // asset name pattern for the checksum manifest
	Attestation string // asset name pattern for the attestation bundle

	Identities []string // signer identity patterns to pin

	Destination string // extraction directory
	Interpreter string // Python interpreter for installation
	Upgrade     bool
	Overwrite   bool

	AllowUnsigned   bool // proceed without an attestation asset
	RequireOriginal bool // reject backfilled attestations
}

// Validate checks the profile for required fields and obvious mistakes.
func (p *Profile) Validate() error {
	if p.Repository == "" {
		return fmt.Errorf("profile missing repository")
	}
	parts := strings.Split(p.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("repository %q must have the form owner/name", p.Repository)
	}
	if p.Archive == "" {
		return fmt.Errorf("profile missing archive pattern")
	}
	if p.Manifest == "" {
		return fmt.Errorf("profile missing manifest pattern")
	}
	if p.AllowUnsigned && len(p.Identities) > 0 {
		return fmt.Errorf("identities are pinned but allow_unsigned is set")
	}
	return nil
}
