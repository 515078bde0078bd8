package group

import (
	"math/big"

	"github.com/pkg/errors"
)

// Scalar is an integer modulo ℓ. The zero value is 0. Scalars are immutable.
type Scalar struct {
	v *big.Int
}

// NewScalar reduces v modulo ℓ.
func NewScalar(v *big.Int) Scalar {
	return Scalar{v: new(big.Int).Mod(v, &params.Order)}
}

// ScalarFromUint64 returns v mod ℓ.
func ScalarFromUint64(v uint64) Scalar {
	return NewScalar(new(big.Int).SetUint64(v))
}

// ScalarFromWide reduces a big-endian byte string of any length modulo ℓ.
func ScalarFromWide(b []byte) Scalar {
	return NewScalar(new(big.Int).SetBytes(b))
}

// ScalarFromBytes parses a canonical 32-byte big-endian scalar.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarSize {
		return Scalar{}, errors.Wrapf(ErrLength, "scalar: got %d bytes", len(b))
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(&params.Order) >= 0 {
		return Scalar{}, ErrNonCanonical
	}
	return Scalar{v: v}, nil
}

func (s Scalar) int() *big.Int {
	if s.v == nil {
		return new(big.Int)
	}
	return s.v
}

// BigInt returns a copy of the scalar value.
func (s Scalar) BigInt() *big.Int {
	return new(big.Int).Set(s.int())
}

// Bytes returns the 32-byte big-endian encoding.
func (s Scalar) Bytes() [ScalarSize]byte {
	var out [ScalarSize]byte
	s.int().FillBytes(out[:])
	return out
}

func (s Scalar) IsZero() bool {
	return s.int().Sign() == 0
}

func (s Scalar) Equal(t Scalar) bool {
	return s.int().Cmp(t.int()) == 0
}

func (s Scalar) Add(t Scalar) Scalar {
	return NewScalar(new(big.Int).Add(s.int(), t.int()))
}

func (s Scalar) Mul(t Scalar) Scalar {
	return NewScalar(new(big.Int).Mul(s.int(), t.int()))
}
