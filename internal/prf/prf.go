// Package prf provides the labelled BLAKE2b expansions used by key and note
// derivation.
package prf

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/blake2b"
)

// Size of every expansion output.
const Size = blake2b.Size

// Expand is keyed BLAKE2b-512 over label || inputs.
// key must be between 1 and 64 bytes.
func Expand(label string, key []byte, inputs ...[]byte) [Size]byte {
	h, err := blake2b.New512(key)
	if err != nil {
		// only reachable with a key longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(label))
	for _, in := range inputs {
		h.Write(in)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash is unkeyed BLAKE2b-512 over label || inputs.
func Hash(label string, inputs ...[]byte) [Size]byte {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(label))
	for _, in := range inputs {
		h.Write(in)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Field reduces a wide big-endian value modulo the scalar field of BLS12-377.
func Field(wide []byte) fr.Element {
	var e fr.Element
	e.SetBytes(wide)
	return e
}

// DomainSeparator maps a label to a fixed field element.
func DomainSeparator(label string) fr.Element {
	h := Hash(label)
	return Field(h[:])
}
