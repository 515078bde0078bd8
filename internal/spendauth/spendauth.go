// spendauth.go - Rerandomizable Schnorr signatures authorizing a spend.
//
// A spend authorization key ask is shifted by a fresh randomizer r per signing
// context: rsk = ask + r, rk = rsk·B. Signatures under different randomizers
// share no visible structure.
//
// WARNING: Sign draws a fresh nonce seed from its rng on every call. Never hand
// it a replaying reader outside of tests.

package spendauth

import (
	"io"

	"github.com/pkg/errors"

	"shieldnote/internal/group"
	"shieldnote/internal/keys"
	"shieldnote/internal/kinds"
	"shieldnote/internal/note"
	"shieldnote/internal/prf"
)

const (
	VerificationKeySize = group.PointSize
	SignatureSize       = group.PointSize + group.ScalarSize
	RandomizerSize      = group.ScalarSize

	nonceSeedSize = 80

	labelNonce     = "shieldnote/sig-nonce"
	labelChallenge = "shieldnote/sig-challenge"
)

// AuthKey is the spend authorization key of an account.
type AuthKey struct {
	ask group.Scalar
}

// FromSpendKey returns the spend authorization sub-key of sk.
func FromSpendKey(sk *keys.SpendKey) AuthKey {
	return AuthKey{ask: sk.SpendAuthScalar()}
}

// VerificationKey returns the unrandomized key ak.
func (k AuthKey) VerificationKey() VerificationKey {
	return VerificationKey{p: group.Basepoint().Mul(k.ask)}
}

// Randomize shifts the key by r.
func (k AuthKey) Randomize(r Randomizer) SigningKey {
	rsk := k.ask.Add(r.s)
	return SigningKey{rsk: rsk, rk: group.Basepoint().Mul(rsk)}
}

// Randomizer is a secret scalar chosen per signing context.
type Randomizer struct {
	s group.Scalar
}

// NewRandomizer draws a uniform randomizer from rng.
func NewRandomizer(rng io.Reader) (Randomizer, error) {
	var wide [2 * group.ScalarSize]byte
	if _, err := io.ReadFull(rng, wide[:]); err != nil {
		return Randomizer{}, errors.Wrap(err, "read randomizer")
	}
	return Randomizer{s: group.ScalarFromWide(wide[:])}, nil
}

// RandomizerFromBytes parses a canonical 32-byte scalar.
func RandomizerFromBytes(b []byte) (Randomizer, error) {
	s, err := group.ScalarFromBytes(b)
	if err != nil {
		return Randomizer{}, errors.Wrapf(kinds.ErrInvalidKey, "randomizer: %v", err)
	}
	return Randomizer{s: s}, nil
}

func (r Randomizer) Bytes() [RandomizerSize]byte {
	return r.s.Bytes()
}

// SigningKey is a randomized key (rsk, rk).
type SigningKey struct {
	rsk group.Scalar
	rk  group.Point
}

func (k SigningKey) VerificationKey() VerificationKey {
	return VerificationKey{p: k.rk}
}

// Sign produces a Schnorr signature over msg. A fresh nonce seed is read
// from rng on every call; failure to read it is an error.
func (k SigningKey) Sign(rng io.Reader, msg []byte) (Signature, error) {
	var t [nonceSeedSize]byte
	if _, err := io.ReadFull(rng, t[:]); err != nil {
		return Signature{}, errors.Wrap(err, "read signing randomness")
	}
	vk := k.rk.Bytes()
	wide := prf.Hash(labelNonce, t[:], vk[:], msg)
	nonce := group.ScalarFromWide(wide[:])

	r := group.Basepoint().Mul(nonce)
	c := challenge(r, vk, msg)
	return Signature{r: r, s: nonce.Add(c.Mul(k.rsk))}, nil
}

func challenge(r group.Point, vk [VerificationKeySize]byte, msg []byte) group.Scalar {
	rb := r.Bytes()
	wide := prf.Hash(labelChallenge, rb[:], vk[:], msg)
	return group.ScalarFromWide(wide[:])
}

// VerificationKey is rk, the public half of a signing key.
type VerificationKey struct {
	p group.Point
}

// VerificationKeyFromBytes rejects non-canonical encodings, points outside the
// subgroup and the identity.
func VerificationKeyFromBytes(b []byte) (VerificationKey, error) {
	p, err := group.DecodeNonIdentity(b)
	if err != nil {
		return VerificationKey{}, errors.Wrapf(kinds.ErrInvalidKey, "verification key: %v", err)
	}
	return VerificationKey{p: p}, nil
}

func (vk VerificationKey) Bytes() [VerificationKeySize]byte {
	return vk.p.Bytes()
}

func (vk VerificationKey) Equal(other VerificationKey) bool {
	return vk.p.Equal(other.p)
}

// Randomize returns ak + r·B, letting a verifier that knows r match rk to ak.
func (vk VerificationKey) Randomize(r Randomizer) VerificationKey {
	return VerificationKey{p: vk.p.Add(group.Basepoint().Mul(r.s))}
}

// Signature is R || s.
type Signature struct {
	r group.Point
	s group.Scalar
}

// SignatureFromBytes parses R || s. R must be a canonical subgroup point and s
// a canonical scalar.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureSize {
		return Signature{}, errors.Wrapf(kinds.ErrInvalidSignature, "signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	r, err := group.Decode(b[:group.PointSize])
	if err != nil {
		return Signature{}, errors.Wrapf(kinds.ErrInvalidSignature, "R: %v", err)
	}
	s, err := group.ScalarFromBytes(b[group.PointSize:])
	if err != nil {
		return Signature{}, errors.Wrapf(kinds.ErrInvalidSignature, "s: %v", err)
	}
	return Signature{r: r, s: s}, nil
}

func (sig Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	rb := sig.r.Bytes()
	sb := sig.s.Bytes()
	copy(out[:group.PointSize], rb[:])
	copy(out[group.PointSize:], sb[:])
	return out
}

// Verify checks s·B == R + c·rk. A non-matching signature is false, not an
// error.
func Verify(vk VerificationKey, msg []byte, sig Signature) bool {
	c := challenge(sig.r, vk.Bytes(), msg)
	lhs := group.Basepoint().Mul(sig.s)
	rhs := sig.r.Add(vk.p.Mul(c))
	return lhs.Equal(rhs)
}

// VerifyBytes decodes vk and sig before verifying. Errors are reserved for
// malformed encodings.
func VerifyBytes(vk, msg, sig []byte) (bool, error) {
	key, err := VerificationKeyFromBytes(vk)
	if err != nil {
		return false, err
	}
	s, err := SignatureFromBytes(sig)
	if err != nil {
		return false, err
	}
	return Verify(key, msg, s), nil
}

// SignedNote is a commitment authorized under a randomized key.
type SignedNote struct {
	Commitment note.Commitment
	Key        VerificationKey
	Signature  Signature
}

// SignNote signs the 32-byte commitment encoding.
func SignNote(k SigningKey, rng io.Reader, cm note.Commitment) (SignedNote, error) {
	sig, err := k.Sign(rng, cm[:])
	if err != nil {
		return SignedNote{}, err
	}
	return SignedNote{Commitment: cm, Key: k.VerificationKey(), Signature: sig}, nil
}

// Verify checks the signature against the embedded key.
func (sn SignedNote) Verify() bool {
	return Verify(sn.Key, sn.Commitment[:], sn.Signature)
}
