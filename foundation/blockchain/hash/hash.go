// Package hash provides the deterministic hashing primitives used across the
// ledger. Every structured value is hashed over its canonical JSON form so two
// semantically identical values always produce the same digest.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ZeroHash represents a hash code of zeros.
var ZeroHash = strings.Repeat("0", 64)

// GenesisPrevHash is the previous hash sentinel carried by the genesis block.
const GenesisPrevHash = "0"

// canonical sorts object keys and keeps numbers exactly as they were encoded.
var canonical = jsoniter.Config{
	SortMapKeys: true,
	UseNumber:   true,
	EscapeHTML:  false,
}.Froze()

// Canonical returns the canonical JSON encoding of the value. The value is
// encoded, decoded into generic maps and encoded again so struct field order
// never influences the result.
func Canonical(value any) (string, error) {
	data, err := canonical.Marshal(value)
	if err != nil {
		return "", err
	}

	var generic any
	if err := canonical.Unmarshal(data, &generic); err != nil {
		return "", err
	}

	data, err = canonical.Marshal(generic)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Hash returns a unique string for the value. Strings are hashed as raw text,
// anything else over its canonical JSON encoding.
func Hash(value any) string {
	if s, ok := value.(string); ok {
		return HashString(s)
	}

	data, err := Canonical(value)
	if err != nil {
		return ZeroHash
	}

	return HashString(data)
}

// HashString returns the lowercase hex SHA-256 digest of the text.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DoubleHash applies SHA-256 twice over the utf-8 bytes of the text.
func DoubleHash(s string) string {
	first := sha256.Sum256([]byte(s))
	second := sha256.Sum256(first[:])
	return hex.EncodeToString(second[:])
}

// IsValidHash reports whether the text looks like a hex encoded SHA-256 digest.
func IsValidHash(s string) bool {
	if len(s) != 64 {
		return false
	}

	_, err := hex.DecodeString(s)
	return err == nil
}

// HasPrefixZeros reports whether the hash starts with at least n '0' characters.
func HasPrefixZeros(h string, n int) bool {
	if n <= 0 {
		return true
	}
	if len(h) < n {
		return false
	}

	for i := 0; i < n; i++ {
		if h[i] != '0' {
			return false
		}
	}

	return true
}
