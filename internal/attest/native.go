package attest

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// statementVersion is the first line of the signed statement. Bumping it
// invalidates all existing attestations, so it only changes when the
// statement layout changes.
const statementVersion = "vouch-attestation/v1"

// Keys holds the trusted public keys for native bundle verification.
type Keys struct {
	// Signer verifies the bundle signature over the statement
	Signer ed25519.PublicKey
	// Log verifies the transparency-log checkpoint signature
	Log ed25519.PublicKey
}

// statement is the canonical byte sequence bound by both the bundle
// signature and the transparency log: version, artifact digest, and signer
// identity, newline-terminated.
func statement(digest, signerIdentity string) []byte {
	return []byte(statementVersion + "\n" + strings.ToLower(digest) + "\n" + signerIdentity + "\n")
}

// checkpointBody is the byte sequence signed by the log key, in the style
// of a checksum-database note: origin, tree size, root hash.
func checkpointBody(c *Checkpoint) []byte {
	return []byte(fmt.Sprintf("%s\n%d\n%s\n", c.Origin, c.TreeSize, strings.ToLower(c.RootHash)))
}

// verifyNative checks a native bundle against the artifact digest: the
// ed25519 signature over the statement, the checkpoint signature, and the
// Merkle inclusion proof binding the statement to the checkpoint root.
func verifyNative(b *Bundle, digest string, keys Keys) error {
	if len(keys.Signer) != ed25519.PublicKeySize {
		return &AttestationInvalidError{Reason: "no signer public key configured"}
	}
	if len(keys.Log) != ed25519.PublicKeySize {
		return &AttestationInvalidError{Reason: "no transparency-log public key configured"}
	}

	stmt := statement(digest, b.SignerIdentity)

	if !ed25519.Verify(keys.Signer, stmt, b.Signature) {
		return &AttestationInvalidError{Reason: "signature does not validate against artifact digest"}
	}

	proof := b.Proof
	cp := &proof.Checkpoint

	if proof.TreeSize != cp.TreeSize {
		return &AttestationInvalidError{Reason: "proof tree size disagrees with checkpoint"}
	}

	if !ed25519.Verify(keys.Log, checkpointBody(cp), cp.Signature) {
		return &AttestationInvalidError{Reason: "transparency-log checkpoint signature invalid"}
	}

	root, err := hex.DecodeString(strings.ToLower(cp.RootHash))
	if err != nil {
		return &AttestationInvalidError{Reason: "malformed checkpoint root hash", Err: err}
	}

	path := make([][]byte, len(proof.Hashes))
	for i, h := range proof.Hashes {
		decoded, err := hex.DecodeString(strings.ToLower(h))
		if err != nil {
			return &AttestationInvalidError{Reason: "malformed inclusion proof hash", Err: err}
		}
		path[i] = decoded
	}

	if err := verifyInclusion(leafHash(stmt), proof.LeafIndex, proof.TreeSize, path, root); err != nil {
		return &AttestationInvalidError{Reason: "transparency-log inclusion proof failed", Err: err}
	}

	return nil
}
