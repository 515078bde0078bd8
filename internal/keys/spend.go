// spend.go - Spend key and viewing key derivation.
//
// seed phrase -> spend key -> (ask, nk) -> full viewing key (ak, nk)
//   -> incoming viewing key (ivk, dk) -> diversified addresses

package keys

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bls12-377/fr/mimc"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"shieldnote/internal/group"
	"shieldnote/internal/kinds"
	"shieldnote/internal/prf"
)

const (
	SpendKeySize       = 32
	FullViewingKeySize = 64
	OutgoingKeySize    = 32

	coinType = 6532
)

const (
	labelSpendAuth = "shieldnote/spendauth"
	labelNullifier = "shieldnote/nullifier"
	labelViewKeys  = "shieldnote/viewkeys"
	labelIVK       = "shieldnote/ivk"
)

// SpendKey is the root secret of one account.
type SpendKey struct {
	raw [SpendKeySize]byte
	ask group.Scalar
	nk  fr.Element
}

// DeriveSpendKey derives the spend key of account from a seed phrase.
func DeriveSpendKey(phrase SeedPhrase, account uint32) (*SpendKey, error) {
	if !phrase.valid() {
		return nil, errors.Wrap(kinds.ErrInvalidSeed, "empty seed phrase")
	}
	seed := bip39.NewSeed(phrase.words, accountPath(account))
	return SpendKeyFromBytes(seed[:SpendKeySize])
}

// DeriveSpendKeyFromString parses phrase before deriving.
func DeriveSpendKeyFromString(phrase string, account uint32) (*SpendKey, error) {
	p, err := ParseSeedPhrase(phrase)
	if err != nil {
		return nil, err
	}
	return DeriveSpendKey(p, account)
}

// SpendKeyFromBytes rebuilds a spend key from its 32-byte encoding.
func SpendKeyFromBytes(b []byte) (*SpendKey, error) {
	if len(b) != SpendKeySize {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "spend key must be %d bytes, got %d", SpendKeySize, len(b))
	}
	sk := &SpendKey{}
	copy(sk.raw[:], b)

	a := prf.Expand(labelSpendAuth, sk.raw[:], []byte{0})
	sk.ask = group.ScalarFromWide(a[:])
	if sk.ask.IsZero() {
		return nil, errors.Wrap(kinds.ErrInvalidKey, "spend authorization scalar is zero")
	}
	n := prf.Expand(labelNullifier, sk.raw[:], []byte{1})
	sk.nk = prf.Field(n[:])
	return sk, nil
}

func (sk *SpendKey) Bytes() [SpendKeySize]byte {
	return sk.raw
}

// SpendAuthScalar returns ask, the base of every randomized signing key.
func (sk *SpendKey) SpendAuthScalar() group.Scalar {
	return sk.ask
}

// FullViewingKey derives (ak, nk).
func (sk *SpendKey) FullViewingKey() *FullViewingKey {
	return newFullViewingKey(group.Basepoint().Mul(sk.ask), sk.nk)
}

// FullViewingKey can view every note of the account but cannot spend.
type FullViewingKey struct {
	ak  group.Point
	nk  fr.Element
	ovk [OutgoingKeySize]byte
	ivk *IncomingViewingKey
}

func newFullViewingKey(ak group.Point, nk fr.Element) *FullViewingKey {
	fvk := &FullViewingKey{ak: ak, nk: nk}
	akb := ak.Bytes()
	nkb := nk.Bytes()
	expanded := prf.Expand(labelViewKeys, nkb[:], akb[:])
	copy(fvk.ovk[:], expanded[:OutgoingKeySize])

	var dk [DiversifierKeySize]byte
	copy(dk[:], expanded[OutgoingKeySize:OutgoingKeySize+DiversifierKeySize])

	h := mimcNative.NewMiMC()
	ds := prf.DomainSeparator(labelIVK)
	x, y := ak.Coordinates()
	for _, e := range []fr.Element{ds, nk, x, y} {
		b := e.Bytes()
		h.Write(b[:])
	}
	ivk := group.ScalarFromWide(h.Sum(nil))
	fvk.ivk = newIncomingViewingKey(ivk, dk)
	return fvk
}

// FullViewingKeyFromBytes parses ak || nk.
func FullViewingKeyFromBytes(b []byte) (*FullViewingKey, error) {
	if len(b) != FullViewingKeySize {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "full viewing key must be %d bytes, got %d", FullViewingKeySize, len(b))
	}
	ak, err := group.DecodeNonIdentity(b[:group.PointSize])
	if err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "ak: %v", err)
	}
	var nk fr.Element
	if err := nk.SetBytesCanonical(b[group.PointSize:]); err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "nk: %v", err)
	}
	return newFullViewingKey(ak, nk), nil
}

func (fvk *FullViewingKey) Bytes() [FullViewingKeySize]byte {
	var out [FullViewingKeySize]byte
	akb := fvk.ak.Bytes()
	nkb := fvk.nk.Bytes()
	copy(out[:group.PointSize], akb[:])
	copy(out[group.PointSize:], nkb[:])
	return out
}

// SpendVerificationKey returns ak = ask·B.
func (fvk *FullViewingKey) SpendVerificationKey() group.Point {
	return fvk.ak
}

func (fvk *FullViewingKey) NullifierKey() [32]byte {
	return fvk.nk.Bytes()
}

func (fvk *FullViewingKey) Outgoing() [OutgoingKeySize]byte {
	return fvk.ovk
}

func (fvk *FullViewingKey) Incoming() *IncomingViewingKey {
	return fvk.ivk
}
