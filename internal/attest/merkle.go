package attest

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

// RFC 6962 domain-separation prefixes for leaf and interior node hashes.
const (
	leafHashPrefix = 0x00
	nodeHashPrefix = 0x01
)

// leafHash computes the RFC 6962 leaf hash of a statement.
func leafHash(payload []byte) []byte {
	h := sha256.New()
	h.Write([]byte{leafHashPrefix})
	h.Write(payload)
	return h.Sum(nil)
}

// nodeHash computes the RFC 6962 interior node hash of two children.
func nodeHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{nodeHashPrefix})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// verifyInclusion checks an RFC 6962 inclusion proof: recompute the root
// from the leaf hash and the audit path, then compare it to the expected
// root hash.
func verifyInclusion(leaf []byte, index, size int64, path [][]byte, root []byte) error {
	if index < 0 || size <= 0 || index >= size {
		return fmt.Errorf("leaf index %d out of range for tree size %d", index, size)
	}

	fn := index
	sn := size - 1
	current := leaf

	for _, sibling := range path {
		if sn == 0 {
			return fmt.Errorf("inclusion proof has too many hashes")
		}
		if fn%2 == 1 || fn == sn {
			current = nodeHash(sibling, current)
			if fn%2 == 0 {
				for fn%2 == 0 && fn != 0 {
					fn >>= 1
					sn >>= 1
				}
			}
		} else {
			current = nodeHash(current, sibling)
		}
		fn >>= 1
		sn >>= 1
	}

	if sn != 0 {
		return fmt.Errorf("inclusion proof has too few hashes")
	}
	if !bytes.Equal(current, root) {
		return fmt.Errorf("computed root does not match checkpoint root")
	}
	return nil
}
