package statesync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// Checksum returns a deterministic hex digest of a JSON payload. The
// payload is canonicalized (RFC 8785) before hashing so key order and
// whitespace never affect the result: the same payload always produces
// the same checksum, and any payload difference changes it with
// overwhelming probability.
//
// This is a corruption/drift detector, not a security primitive.
func Checksum(payload []byte) (string, error) {
	canonical, err := jcs.Transform(payload)
	if err != nil {
		return "", errors.WrapInvalid(err, "statesync", "Checksum", "canonicalize")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ChecksumValue marshals any value and checksums the resulting JSON.
func ChecksumValue(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", errors.WrapInvalid(err, "statesync", "ChecksumValue", "marshal")
	}
	return Checksum(raw)
}
