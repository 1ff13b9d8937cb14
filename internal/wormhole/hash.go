package wormhole

import (
	sha256 "github.com/minio/sha256-simd"
)

// hashConcat is the protocol hash H over the concatenation of parts.
func hashConcat(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash exposes H for callers outside the package (fixtures, tooling)
func Hash(parts ...[]byte) [32]byte {
	return hashConcat(parts...)
}
