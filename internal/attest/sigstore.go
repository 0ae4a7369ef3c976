package attest

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/verify"
)

// verifySigstoreBundle verifies a sigstore bundle keylessly: certificate
// chain against the Fulcio roots, one transparency-log entry, and the
// artifact-digest policy. Identity pinning and backfill handling stay in
// this package so that the error taxonomy matches the native path.
//
// Fetching the trusted root goes through TUF and therefore the network;
// sigstore bundles cannot be verified fully offline.
func verifySigstoreBundle(ctx context.Context, b *Bundle, digest string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb bundle.Bundle
	if err := sb.UnmarshalJSON(b.raw); err != nil {
		return nil, &AttestationInvalidError{Reason: "unparseable sigstore bundle", Err: err}
	}

	trusted, err := root.FetchTrustedRoot()
	if err != nil {
		return nil, fmt.Errorf("fetch sigstore trusted root: %w", err)
	}

	verifier, err := verify.NewVerifier(trusted,
		verify.WithTransparencyLog(1),
		verify.WithObserverTimestamps(1),
	)
	if err != nil {
		return nil, fmt.Errorf("build sigstore verifier: %w", err)
	}

	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("decode artifact digest: %w", err)
	}

	// Identity is checked after verification so that a signature failure
	// and an identity mismatch surface as distinct errors.
	policy := verify.NewPolicy(
		verify.WithArtifactDigest("sha256", digestBytes),
		verify.WithoutIdentitiesUnsafe(),
	)

	res, err := verifier.Verify(&sb, policy)
	if err != nil {
		return nil, &AttestationInvalidError{Reason: "sigstore verification failed", Err: err}
	}

	identity := ""
	if res.Signature != nil && res.Signature.Certificate != nil {
		identity = res.Signature.Certificate.SubjectAlternativeName
	}

	if err := checkIdentity(identity, opts.IdentityPatterns); err != nil {
		return nil, err
	}

	// Sigstore bundles carry no backfill metadata; they are treated as
	// original attestations.
	return &Result{
		Format:         FormatSigstore,
		SignerIdentity: identity,
	}, nil
}
