package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChecksumKey is the metadata key holding the hex SHA-256 of the data section.
const ChecksumKey = "sha256"

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}

// verifyHexChecksum checks data against a hex-encoded SHA-256 digest.
func verifyHexChecksum(data []byte, digest string) error {
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) != sha256.Size {
		return fmt.Errorf("%w: malformed %s metadata %q", ErrInvalidHeader, ChecksumKey, digest)
	}
	var stored [32]byte
	copy(stored[:], raw)
	return ValidateChecksum(ComputeChecksum(data), stored)
}
