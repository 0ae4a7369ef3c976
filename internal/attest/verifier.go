// Package attest validates a detached attestation bundle against an
// artifact digest, pins the signer identity against allowed patterns, and
// distinguishes original from backfilled attestations.
//
// Two bundle formats are supported, routed by media type:
//   - native vouch bundles: an ed25519 signature over the digest statement
//     plus a Merkle inclusion proof against a signed log checkpoint, both
//     verified offline against configured public keys
//   - sigstore bundles: verified keylessly through sigstore-go against the
//     public-good trusted root
package attest

import (
	"context"
	"fmt"
)

// Options configures bundle verification.
type Options struct {
	// IdentityPatterns pins the signer identity; empty means no pinning
	IdentityPatterns []string
	// RequireOriginal rejects backfilled attestations outright
	RequireOriginal bool
	// Keys are the trusted public keys for native bundles
	Keys Keys
}

// Result is the verification outcome consumed by the pipeline and recorded
// in the audit record.
type Result struct {
	Format         Format
	SignerIdentity string
	Backfilled     bool
	BackfillNote   string
	// Warnings carries non-fatal annotations such as backfill acceptance
	Warnings []string
}

// Verify validates bundleBytes against the artifact digest. The digest is
// the lowercase hex SHA-256 already computed by the integrity stage; it is
// never recomputed here.
func Verify(ctx context.Context, bundleBytes []byte, digest string, opts Options) (*Result, error) {
	bundle, err := ParseBundle(bundleBytes)
	if err != nil {
		return nil, &AttestationInvalidError{Reason: "unparseable bundle", Err: err}
	}

	switch bundle.Format {
	case FormatNative:
		return verifyNativeBundle(bundle, digest, opts)
	case FormatSigstore:
		return verifySigstoreBundle(ctx, bundle, digest, opts)
	default:
		return nil, &AttestationInvalidError{Reason: fmt.Sprintf("unsupported bundle format %s", bundle.Format)}
	}
}

func verifyNativeBundle(bundle *Bundle, digest string, opts Options) (*Result, error) {
	if err := verifyNative(bundle, digest, opts.Keys); err != nil {
		return nil, err
	}

	if err := checkIdentity(bundle.SignerIdentity, opts.IdentityPatterns); err != nil {
		return nil, err
	}

	result := &Result{
		Format:         FormatNative,
		SignerIdentity: bundle.SignerIdentity,
		Backfilled:     bundle.Backfilled(),
	}

	if bundle.Backfilled() {
		if opts.RequireOriginal {
			return nil, &AttestationInvalidError{
				Reason: fmt.Sprintf("backfilled attestation rejected (original %s, backfilled %s)",
					bundle.Backfill.OriginalDate.Format("2006-01-02"),
					bundle.Backfill.BackfillDate.Format("2006-01-02")),
			}
		}
		result.BackfillNote = bundle.Backfill.Note
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("attestation was backfilled on %s", bundle.Backfill.BackfillDate.Format("2006-01-02")))
	}

	return result, nil
}
