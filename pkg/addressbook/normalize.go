package addressbook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyAddress indicates the raw address normalized to nothing usable.
var ErrEmptyAddress = errors.New("address is empty after normalization")

// Canonicalize reduces a raw address string to its canonical form:
// trimmed, lowercased, with runs of whitespace collapsed to single
// spaces. Equivalent inputs must map to the same canonical text, since
// that text is what gets hashed into the cache key.
func Canonicalize(raw string) (string, error) {
	canonical := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if canonical == "" {
		return "", ErrEmptyAddress
	}
	return canonical, nil
}

// Key computes the cache key for a canonical address at a carrier.
// External address-book IDs are carrier-specific, so the carrier is
// part of the digest: the same street address registered with two
// carriers is two cache entries.
func Key(carrier, canonical string) string {
	sum := sha256.Sum256([]byte(carrier + "\n" + canonical))
	return hex.EncodeToString(sum[:])
}
