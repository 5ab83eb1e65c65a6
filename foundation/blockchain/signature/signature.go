// Package signature provides helper functions for handling the blockchain
// signature needs. Keys live on the secp256k1 curve, messages are signed over
// their sha256 digest and addresses use the Base58Check encoding of the
// hash160 of the public key.
package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// Version bytes prefixed to the payload before Base58Check encoding.
const (
	AddressVersion    byte = 0x00
	PrivateKeyVersion byte = 0x80
)

// Signer represents the behavior required to sign the inputs of a transaction.
type Signer interface {
	Sign(message string) (string, error)
	PublicKeyHex() string
	Address() string
}

// Verifier represents the behavior required to check a signed input and the
// address of the key that signed it.
type Verifier interface {
	Verify(message string, signatureHex string, publicKeyHex string) bool
	DeriveAddress(publicKeyHex string) (string, error)
}

// =============================================================================

// Secp256k1 implements the Verifier interface for keys produced by a Wallet.
type Secp256k1 struct{}

// Verify checks the hex encoded [R || S] signature of the message against the
// hex encoded [X || Y] public key.
func (Secp256k1) Verify(message string, signatureHex string, publicKeyHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != crypto.RecoveryIDOffset {
		return false
	}

	pub, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(message))

	return crypto.VerifySignature(pub, digest[:], sig)
}

// DeriveAddress computes the address for the hex encoded public key.
func (Secp256k1) DeriveAddress(publicKeyHex string) (string, error) {
	return DeriveAddress(publicKeyHex)
}

// =============================================================================

// DeriveAddress computes the address for the hex encoded public key:
// Base58Check(version || RIPEMD160(SHA256(pubkey))).
func DeriveAddress(publicKeyHex string) (string, error) {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("decoding public key: %w", err)
	}

	if len(pub) != 64 {
		return "", fmt.Errorf("public key must be 64 bytes, got %d", len(pub))
	}

	sum := sha256.Sum256(pub)

	h := ripemd160.New()
	h.Write(sum[:])

	return encodeCheck(AddressVersion, h.Sum(nil)), nil
}

// ValidateAddress reports whether the address is a well formed Base58Check
// string with the address version byte.
func ValidateAddress(address string) bool {
	version, payload, err := decodeCheck(address)
	if err != nil {
		return false
	}

	return version == AddressVersion && len(payload) == ripemd160.Size
}

// =============================================================================

func encodeCheck(version byte, payload []byte) string {
	data := make([]byte, 0, 1+len(payload)+4)
	data = append(data, version)
	data = append(data, payload...)
	data = append(data, checksum(data)...)

	return base58.Encode(data)
}

func decodeCheck(s string) (byte, []byte, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding base58: %w", err)
	}

	if len(data) < 5 {
		return 0, nil, errors.New("payload too short")
	}

	body, sum := data[:len(data)-4], data[len(data)-4:]
	if !bytes.Equal(checksum(body), sum) {
		return 0, nil, errors.New("invalid checksum")
	}

	return body[0], body[1:], nil
}

func checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// decodePublicKey converts the [X || Y] hex form into the uncompressed
// encoding go-ethereum expects.
func decodePublicKey(publicKeyHex string) ([]byte, error) {
	xy, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, err
	}

	if len(xy) != 64 {
		return nil, fmt.Errorf("public key must be 64 bytes, got %d", len(xy))
	}

	pub := append([]byte{0x04}, xy...)
	if _, err := crypto.UnmarshalPubkey(pub); err != nil {
		return nil, err
	}

	return pub, nil
}
