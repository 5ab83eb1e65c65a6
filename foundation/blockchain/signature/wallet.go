package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds a secp256k1 key pair and the address derived from it. It
// implements the Signer interface.
type Wallet struct {
	privateKey   *ecdsa.PrivateKey
	publicKeyHex string
	address      string
}

// NewWallet generates a new key pair.
func NewWallet() (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	return FromPrivateKey(privateKey)
}

// FromPrivateKey constructs a wallet for an existing private key.
func FromPrivateKey(privateKey *ecdsa.PrivateKey) (*Wallet, error) {
	if privateKey == nil {
		return nil, errors.New("private key is required")
	}

	publicKeyHex := hex.EncodeToString(crypto.FromECDSAPub(&privateKey.PublicKey)[1:])

	address, err := DeriveAddress(publicKeyHex)
	if err != nil {
		return nil, err
	}

	w := Wallet{
		privateKey:   privateKey,
		publicKeyHex: publicKeyHex,
		address:      address,
	}

	return &w, nil
}

// FromHex constructs a wallet from a hex encoded private key.
func FromHex(privateKeyHex string) (*Wallet, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return FromPrivateKey(privateKey)
}

// FromWIF constructs a wallet from a private key in wallet import format.
func FromWIF(wif string) (*Wallet, error) {
	version, payload, err := decodeCheck(wif)
	if err != nil {
		return nil, fmt.Errorf("decoding wif: %w", err)
	}

	if version != PrivateKeyVersion {
		return nil, fmt.Errorf("unexpected wif version %#x", version)
	}

	privateKey, err := crypto.ToECDSA(payload)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return FromPrivateKey(privateKey)
}

// Load reads a hex encoded private key from the file.
func Load(path string) (*Wallet, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key %q: %w", path, err)
	}

	return FromPrivateKey(privateKey)
}

// Save writes the private key hex encoded to the file.
func (w *Wallet) Save(path string) error {
	if err := crypto.SaveECDSA(path, w.privateKey); err != nil {
		return fmt.Errorf("saving key %q: %w", path, err)
	}

	return nil
}

// Sign produces a hex encoded [R || S] signature over the sha256 digest of
// the message.
func (w *Wallet) Sign(message string) (string, error) {
	digest := sha256.Sum256([]byte(message))

	sig, err := crypto.Sign(digest[:], w.privateKey)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(sig[:crypto.RecoveryIDOffset]), nil
}

// PublicKeyHex returns the hex encoded [X || Y] public key.
func (w *Wallet) PublicKeyHex() string {
	return w.publicKeyHex
}

// Address returns the address derived from the public key.
func (w *Wallet) Address() string {
	return w.address
}

// PrivateKeyHex returns the hex encoded private key.
func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(w.privateKey))
}

// ExportWIF returns the private key in wallet import format.
func (w *Wallet) ExportWIF() string {
	return encodeCheck(PrivateKeyVersion, crypto.FromECDSA(w.privateKey))
}
