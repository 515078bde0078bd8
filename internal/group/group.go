// group.go - Prime-order group used for addresses, commitments and spend
// authorization.
//
// The group is the order-ℓ subgroup of the twisted Edwards curve
// -x² + y² = 1 + 3021·x²y² over the BLS12-377 scalar field, so its coordinates
// are native field elements inside the output circuit.

package group

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards"
	"github.com/pkg/errors"
)

const (
	PointSize  = 32
	ScalarSize = 32
)

var (
	ErrLength        = errors.New("wrong encoding length")
	ErrNonCanonical  = errors.New("non-canonical encoding")
	ErrNotOnCurve    = errors.New("point not on curve")
	ErrNotInSubgroup = errors.New("point outside the prime-order subgroup")
	ErrIdentity      = errors.New("identity element")
)

var params = twistededwards.GetEdwardsCurve()

// Order returns ℓ.
func Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

// Point is an element of the prime-order subgroup.
type Point struct {
	p twistededwards.PointAffine
}

// Identity returns the neutral element (0, 1).
func Identity() Point {
	var id Point
	id.p.Y.SetOne()
	return id
}

// Basepoint returns the fixed generator B.
func Basepoint() Point {
	return Point{p: params.Base}
}

// Affine returns the affine coordinates of p.
func (p Point) Affine() twistededwards.PointAffine {
	return p.p
}

// Coordinates returns x and y.
func (p Point) Coordinates() (x, y fr.Element) {
	return p.p.X, p.p.Y
}

func (p Point) Bytes() [PointSize]byte {
	return p.p.Bytes()
}

func (p Point) Equal(q Point) bool {
	return p.p.Equal(&q.p)
}

func (p Point) IsIdentity() bool {
	return p.p.IsZero()
}

func (p Point) Add(q Point) Point {
	var r Point
	r.p.Add(&p.p, &q.p)
	return r
}

// Mul returns s·p.
func (p Point) Mul(s Scalar) Point {
	var r Point
	r.p.ScalarMultiplication(&p.p, s.int())
	return r
}

func inSubgroup(p *twistededwards.PointAffine) bool {
	var t twistededwards.PointAffine
	t.ScalarMultiplication(p, &params.Order)
	return t.IsZero()
}

// Decode parses a 32-byte point encoding. The encoding must be the canonical
// one for a point of the prime-order subgroup. The identity is accepted.
func Decode(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Point{}, errors.Wrapf(ErrLength, "point: got %d bytes", len(b))
	}
	var p Point
	if _, err := p.p.SetBytes(b); err != nil {
		return Point{}, errors.Wrap(ErrNonCanonical, err.Error())
	}
	if !p.p.IsOnCurve() {
		return Point{}, ErrNotOnCurve
	}
	if enc := p.p.Bytes(); string(enc[:]) != string(b) {
		return Point{}, ErrNonCanonical
	}
	if !inSubgroup(&p.p) {
		return Point{}, ErrNotInSubgroup
	}
	return p, nil
}

// DecodeNonIdentity is Decode followed by rejection of the identity.
func DecodeNonIdentity(b []byte) (Point, error) {
	p, err := Decode(b)
	if err != nil {
		return Point{}, err
	}
	if p.IsIdentity() {
		return Point{}, ErrIdentity
	}
	return p, nil
}

// FromUniform maps a field element to a subgroup point by treating it as a y
// coordinate, picking the canonical x root and clearing the cofactor.
// ok is false when y is not on the curve or the result is the identity.
func FromUniform(y fr.Element) (p Point, ok bool) {
	var one, y2, num, den, x2 fr.Element
	one.SetOne()
	y2.Square(&y)
	num.Sub(&one, &y2)
	den.Mul(&y2, &params.D)
	den.Sub(&params.A, &den)
	if den.IsZero() {
		return Point{}, false
	}
	x2.Div(&num, &den)
	if x2.Legendre() == -1 {
		return Point{}, false
	}
	var x fr.Element
	if x.Sqrt(&x2) == nil {
		return Point{}, false
	}
	if x.LexicographicallyLargest() {
		x.Neg(&x)
	}
	p.p = twistededwards.NewPointAffine(x, y)
	p.p.Double(&p.p)
	p.p.Double(&p.p)
	if p.p.IsZero() {
		return Point{}, false
	}
	return p, true
}
