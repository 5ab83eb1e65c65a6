package hash_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Canonical(t *testing.T) {
	type record struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
		Mid   any    `json:"mid"`
	}

	t.Log("Given the need to encode values canonically.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding a struct with unsorted fields.", testID)
		{
			got, err := hash.Canonical(record{Zeta: "z", Alpha: 1, Mid: map[string]any{"y": 2, "b": 1.5}})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode the value: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to encode the value.", success, testID)

			exp := `{"alpha":1,"mid":{"b":1.5,"y":2},"zeta":"z"}`
			if got != exp {
				t.Logf("\t\tTest %d:\tgot: %s", testID, got)
				t.Logf("\t\tTest %d:\texp: %s", testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould sort every key.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sort every key.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen hashing the same data built in different orders.", testID)
		{
			a := map[string]any{"index": 1, "nonce": 7, "timestamp": 100}
			b := struct {
				Timestamp int `json:"timestamp"`
				Nonce     int `json:"nonce"`
				Index     int `json:"index"`
			}{100, 7, 1}

			if hash.Hash(a) != hash.Hash(b) {
				t.Fatalf("\t%s\tTest %d:\tShould produce the same hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce the same hash.", success, testID)
		}
	}
}

func Test_Digests(t *testing.T) {
	tt := []struct {
		name string
		fn   func(string) string
		in   string
		exp  string
	}{
		{"sha256-empty", hash.HashString, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"sha256-abc", hash.HashString, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"hash-string", func(s string) string { return hash.Hash(s) }, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"double-abc", hash.DoubleHash, "abc", "4f8b42c22dd3729b519ba6f68d2da7cc5b2d606d05daed5ad5128cc03e6c6358"},
	}

	t.Log("Given the need to produce known digests.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := tst.fn(tst.in)
				if got != tst.exp {
					t.Logf("\t\tTest %d:\tgot: %s", testID, got)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right digest.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right digest.", success, testID)

				if !hash.IsValidHash(got) {
					t.Fatalf("\t%s\tTest %d:\tShould be a valid hash.", failed, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_PrefixZeros(t *testing.T) {
	h := "000abc"

	if !hash.HasPrefixZeros(h, 3) {
		t.Fatalf("\t%s\tShould accept three leading zeros.", failed)
	}
	if hash.HasPrefixZeros(h, 4) {
		t.Fatalf("\t%s\tShould reject four leading zeros.", failed)
	}
	if !hash.HasPrefixZeros(h, 0) {
		t.Fatalf("\t%s\tShould accept a zero difficulty.", failed)
	}
	if hash.HasPrefixZeros("00", 3) {
		t.Fatalf("\t%s\tShould reject a hash shorter than the difficulty.", failed)
	}
	t.Logf("\t%s\tShould count leading zeros.", success)
}
