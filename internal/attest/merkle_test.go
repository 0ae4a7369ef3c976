package attest

import (
	"fmt"
	"testing"
)

// merkleRoot computes the RFC 6962 tree hash over the given leaf payloads.
func merkleRoot(leaves [][]byte) []byte {
	n := len(leaves)
	if n == 1 {
		return leafHash(leaves[0])
	}
	k := largestPowerOfTwoBelow(n)
	return nodeHash(merkleRoot(leaves[:k]), merkleRoot(leaves[k:]))
}

// merklePath computes the RFC 6962 audit path for leaf m.
func merklePath(m int, leaves [][]byte) [][]byte {
	n := len(leaves)
	if n == 1 {
		return nil
	}
	k := largestPowerOfTwoBelow(n)
	if m < k {
		return append(merklePath(m, leaves[:k]), merkleRoot(leaves[k:]))
	}
	return append(merklePath(m-k, leaves[k:]), merkleRoot(leaves[:k]))
}

func largestPowerOfTwoBelow(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

func TestVerifyInclusionAllLeaves(t *testing.T) {
	for size := 1; size <= 8; size++ {
		leaves := make([][]byte, size)
		for i := range leaves {
			leaves[i] = []byte(fmt.Sprintf("statement-%d", i))
		}
		root := merkleRoot(leaves)

		for index := 0; index < size; index++ {
			t.Run(fmt.Sprintf("size_%d_index_%d", size, index), func(t *testing.T) {
				path := merklePath(index, leaves)
				err := verifyInclusion(leafHash(leaves[index]), int64(index), int64(size), path, root)
				if err != nil {
					t.Errorf("valid proof rejected: %v", err)
				}
			})
		}
	}
}

func TestVerifyInclusionRejectsWrongLeaf(t *testing.T) {
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	root := merkleRoot(leaves)
	path := merklePath(2, leaves)

	if err := verifyInclusion(leafHash([]byte("tampered")), 2, 5, path, root); err == nil {
		t.Error("proof for a different leaf was accepted")
	}
}

func TestVerifyInclusionRejectsWrongIndex(t *testing.T) {
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	root := merkleRoot(leaves)
	path := merklePath(1, leaves)

	if err := verifyInclusion(leafHash(leaves[1]), 2, 4, path, root); err == nil {
		t.Error("proof with a wrong index was accepted")
	}
}

func TestVerifyInclusionRejectsTruncatedPath(t *testing.T) {
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	root := merkleRoot(leaves)
	path := merklePath(0, leaves)

	if err := verifyInclusion(leafHash(leaves[0]), 0, 4, path[:1], root); err == nil {
		t.Error("truncated proof was accepted")
	}
}

func TestVerifyInclusionRejectsOutOfRangeIndex(t *testing.T) {
	if err := verifyInclusion(leafHash([]byte("a")), 4, 4, nil, nil); err == nil {
		t.Error("out-of-range index was accepted")
	}
	if err := verifyInclusion(leafHash([]byte("a")), -1, 4, nil, nil); err == nil {
		t.Error("negative index was accepted")
	}
}
