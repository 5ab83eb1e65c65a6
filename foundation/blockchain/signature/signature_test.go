package signature_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

func Test_Signing(t *testing.T) {
	t.Log("Given the need to sign and verify messages.")
	{
		w, err := signature.FromHex(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a wallet: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct a wallet.", success)

		const message = `{"inputs":[]}:input_0`

		sig, err := w.Sign(message)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign data: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to sign data.", success)

		var v signature.Secp256k1

		if !v.Verify(message, sig, w.PublicKeyHex()) {
			t.Fatalf("\t%s\tShould be able to verify the signature.", failed)
		}
		t.Logf("\t%s\tShould be able to verify the signature.", success)

		if v.Verify(message+"x", sig, w.PublicKeyHex()) {
			t.Fatalf("\t%s\tShould reject a signature over different data.", failed)
		}
		t.Logf("\t%s\tShould reject a signature over different data.", success)

		other, err := signature.NewWallet()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a wallet: %s", failed, err)
		}
		if v.Verify(message, sig, other.PublicKeyHex()) {
			t.Fatalf("\t%s\tShould reject a signature from another key.", failed)
		}
		t.Logf("\t%s\tShould reject a signature from another key.", success)

		if v.Verify(message, "zz", w.PublicKeyHex()) || v.Verify(message, sig, "abcd") {
			t.Fatalf("\t%s\tShould reject malformed inputs.", failed)
		}
		t.Logf("\t%s\tShould reject malformed inputs.", success)
	}
}

func Test_Address(t *testing.T) {
	t.Log("Given the need to derive addresses from public keys.")
	{
		w, err := signature.FromHex(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a wallet: %s", failed, err)
		}

		if len(w.PublicKeyHex()) != 128 {
			t.Fatalf("\t%s\tShould have a 64 byte public key, got %d chars.", failed, len(w.PublicKeyHex()))
		}

		addr, err := signature.DeriveAddress(w.PublicKeyHex())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive an address: %s", failed, err)
		}

		if addr != w.Address() {
			t.Logf("got: %s", addr)
			t.Logf("exp: %s", w.Address())
			t.Fatalf("\t%s\tShould get back the same address.", failed)
		}
		t.Logf("\t%s\tShould get back the same address.", success)

		if !strings.HasPrefix(addr, "1") {
			t.Fatalf("\t%s\tShould start with the version prefix 1: %s", failed, addr)
		}

		if !signature.ValidateAddress(addr) {
			t.Fatalf("\t%s\tShould validate the address checksum.", failed)
		}
		t.Logf("\t%s\tShould validate the address checksum.", success)

		broken := addr[:len(addr)-1] + "z"
		if addr[len(addr)-1] == 'z' {
			broken = addr[:len(addr)-1] + "y"
		}
		if signature.ValidateAddress(broken) {
			t.Fatalf("\t%s\tShould reject a damaged address.", failed)
		}
		t.Logf("\t%s\tShould reject a damaged address.", success)

		if _, err := signature.DeriveAddress("00ff"); err == nil {
			t.Fatalf("\t%s\tShould reject a short public key.", failed)
		}
	}
}

func Test_KeyFormats(t *testing.T) {
	t.Log("Given the need to move keys between formats.")
	{
		w, err := signature.FromHex(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a wallet: %s", failed, err)
		}

		if w.PrivateKeyHex() != pkHexKey {
			t.Fatalf("\t%s\tShould return the same private key.", failed)
		}

		wif := w.ExportWIF()
		if !strings.HasPrefix(wif, "5") {
			t.Fatalf("\t%s\tShould export an uncompressed mainnet wif: %s", failed, wif)
		}

		back, err := signature.FromWIF(wif)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to import the wif: %s", failed, err)
		}
		if back.Address() != w.Address() {
			t.Fatalf("\t%s\tShould get the same wallet back from the wif.", failed)
		}
		t.Logf("\t%s\tShould round trip through wif.", success)

		if _, err := signature.FromWIF(w.Address()); err == nil {
			t.Fatalf("\t%s\tShould reject an address as a wif.", failed)
		}

		path := filepath.Join(t.TempDir(), "kennedy.ecdsa")
		if err := w.Save(path); err != nil {
			t.Fatalf("\t%s\tShould be able to save the key: %s", failed, err)
		}

		loaded, err := signature.Load(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the key: %s", failed, err)
		}
		if loaded.Address() != w.Address() {
			t.Fatalf("\t%s\tShould load the same wallet.", failed)
		}
		t.Logf("\t%s\tShould round trip through a key file.", success)
	}
}
