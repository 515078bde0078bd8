package prf

import (
	"bytes"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

func TestExpand(t *testing.T) {
	key := []byte("k")

	t.Run("deterministic", func(t *testing.T) {
		if Expand("a", key, []byte{1}) != Expand("a", key, []byte{1}) {
			t.Fatal("same inputs, different outputs")
		}
	})

	t.Run("label and key separate", func(t *testing.T) {
		base := Expand("a", key, []byte{1})
		if base == Expand("b", key, []byte{1}) {
			t.Error("label ignored")
		}
		if base == Expand("a", []byte("j"), []byte{1}) {
			t.Error("key ignored")
		}
		if base == Hash("a", []byte{1}) {
			t.Error("keyed and unkeyed hashes agree")
		}
	})

	t.Run("oversized key panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected a panic for a 65-byte key")
			}
		}()
		Expand("a", bytes.Repeat([]byte{1}, 65))
	})
}

func TestField(t *testing.T) {
	h := Hash("wide")
	e := Field(h[:])
	b := e.Bytes()
	var back fr.Element
	if err := back.SetBytesCanonical(b[:]); err != nil {
		t.Fatalf("reduced element is not canonical: %v", err)
	}

	a, c := DomainSeparator("x"), DomainSeparator("y")
	if a.Equal(&c) {
		t.Error("distinct labels share a domain separator")
	}
}
