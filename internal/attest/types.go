package attest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format identifies the attestation bundle encoding.
type Format int

const (
	// FormatUnknown indicates an unrecognized bundle
	FormatUnknown Format = iota
	// FormatNative indicates a vouch attestation bundle
	FormatNative
	// FormatSigstore indicates a sigstore bundle verified keylessly
	FormatSigstore
)

// String returns the string representation of the bundle format.
func (f Format) String() string {
	switch f {
	case FormatNative:
		return "native"
	case FormatSigstore:
		return "sigstore"
	default:
		return "unknown"
	}
}

// NativeMediaType identifies vouch attestation bundles.
const NativeMediaType = "application/vnd.vouch.attestation+json"

// sigstoreMediaTypePrefix matches all sigstore bundle versions.
const sigstoreMediaTypePrefix = "application/vnd.dev.sigstore.bundle"

// Backfill records that an attestation was issued retroactively, after the
// artifact's original publication. Backfilled attestations are accepted by
// default but surfaced as a warning; original-only enforcement rejects them.
type Backfill struct {
	OriginalDate time.Time `json:"originalDate"`
	BackfillDate time.Time `json:"backfillDate"`
	Note         string    `json:"note,omitempty"`
}

// Checkpoint is a signed commitment to the transparency log's state.
type Checkpoint struct {
	Origin    string `json:"origin"`
	TreeSize  int64  `json:"treeSize"`
	RootHash  string `json:"rootHash"` // lowercase hex
	Signature []byte `json:"signature"`
}

// InclusionProof proves that the attestation's statement is committed to by
// the checkpoint's root hash.
type InclusionProof struct {
	LeafIndex  int64      `json:"leafIndex"`
	TreeSize   int64      `json:"treeSize"`
	Hashes     []string   `json:"hashes"` // lowercase hex, leaf to root
	Checkpoint Checkpoint `json:"checkpoint"`
}

// Bundle is a parsed attestation bundle. For sigstore bundles only Format
// and raw are populated; verification is delegated to sigstore-go.
type Bundle struct {
	Format         Format
	Signature      []byte
	SignerIdentity string
	Proof          *InclusionProof
	Backfill       *Backfill

	raw []byte
}

// nativeBundle is the wire form of a vouch attestation bundle.
type nativeBundle struct {
	MediaType      string          `json:"mediaType"`
	Signature      []byte          `json:"signature"`
	SignerIdentity string          `json:"signerIdentity"`
	Proof          *InclusionProof `json:"transparencyProof"`
	Backfill       *Backfill       `json:"backfill,omitempty"`
}

// ParseBundle decodes an attestation bundle and detects its format.
func ParseBundle(data []byte) (*Bundle, error) {
	var header struct {
		MediaType string `json:"mediaType"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode attestation bundle: %w", err)
	}

	switch {
	case strings.HasPrefix(header.MediaType, sigstoreMediaTypePrefix):
		return &Bundle{Format: FormatSigstore, raw: data}, nil

	case strings.HasPrefix(header.MediaType, NativeMediaType):
		var native nativeBundle
		if err := json.Unmarshal(data, &native); err != nil {
			return nil, fmt.Errorf("decode attestation bundle: %w", err)
		}
		if len(native.Signature) == 0 {
			return nil, fmt.Errorf("attestation bundle has no signature")
		}
		if native.SignerIdentity == "" {
			return nil, fmt.Errorf("attestation bundle has no signer identity")
		}
		if native.Proof == nil {
			return nil, fmt.Errorf("attestation bundle has no transparency proof")
		}
		return &Bundle{
			Format:         FormatNative,
			Signature:      native.Signature,
			SignerIdentity: native.SignerIdentity,
			Proof:          native.Proof,
			Backfill:       native.Backfill,
			raw:            data,
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized attestation media type %q", header.MediaType)
	}
}

// Backfilled reports whether this bundle was issued retroactively.
func (b *Bundle) Backfilled() bool {
	return b.Backfill != nil
}
