package note

import (
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/pkg/errors"

	"shieldnote/internal/kinds"
)

var (
	ErrAmountOverflow = errors.New("amount overflow")
	ErrAssetMismatch  = errors.New("asset mismatch")
)

// AssetID identifies what a value is denominated in. It is always a canonical
// field element.
type AssetID struct {
	e fr.Element
}

// NewAssetID embeds a numeric asset identifier.
func NewAssetID(id uint64) AssetID {
	var a AssetID
	a.e.SetUint64(id)
	return a
}

// AssetIDFromBytes parses a canonical 32-byte big-endian field element.
func AssetIDFromBytes(b []byte) (AssetID, error) {
	var a AssetID
	if err := a.e.SetBytesCanonical(b); err != nil {
		return AssetID{}, errors.Wrapf(kinds.ErrInvalidNote, "asset id: %v", err)
	}
	return a, nil
}

func (a AssetID) Bytes() [fr.Bytes]byte {
	return a.e.Bytes()
}

func (a AssetID) Element() fr.Element {
	return a.e
}

func (a AssetID) Equal(b AssetID) bool {
	return a.e.Equal(&b.e)
}

// Value is an amount of one asset.
type Value struct {
	Amount uint64
	Asset  AssetID
}

// NewValue builds a value of a numeric asset.
func NewValue(amount, asset uint64) Value {
	return Value{Amount: amount, Asset: NewAssetID(asset)}
}

// Add sums two values of the same asset, failing instead of wrapping.
func (v Value) Add(w Value) (Value, error) {
	if !v.Asset.Equal(w.Asset) {
		return Value{}, ErrAssetMismatch
	}
	sum, carry := bits.Add64(v.Amount, w.Amount, 0)
	if carry != 0 {
		return Value{}, ErrAmountOverflow
	}
	return Value{Amount: sum, Asset: v.Asset}, nil
}

// Sub subtracts w from v, failing instead of wrapping below zero.
func (v Value) Sub(w Value) (Value, error) {
	if !v.Asset.Equal(w.Asset) {
		return Value{}, ErrAssetMismatch
	}
	diff, borrow := bits.Sub64(v.Amount, w.Amount, 0)
	if borrow != 0 {
		return Value{}, ErrAmountOverflow
	}
	return Value{Amount: diff, Asset: v.Asset}, nil
}
