package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"shieldnote/internal/group"
	"shieldnote/internal/kinds"
	"shieldnote/internal/prf"
)

const (
	DiversifierSize    = 16
	DiversifierKeySize = 16
	DetectionKeySize   = 32
	AddressSize        = DiversifierSize + 2*group.PointSize

	labelDiversify = "shieldnote/diversify"
	labelDetection = "shieldnote/detection"
)

var errNoBase = errors.New("diversifier has no diversified base")

// Diversifier selects one of the account's unlinkable addresses.
type Diversifier [DiversifierSize]byte

// DiversifiedBase hashes d to a non-identity subgroup point g_d.
func DiversifiedBase(d Diversifier) (group.Point, error) {
	for ctr := 0; ctr < 256; ctr++ {
		wide := prf.Expand(labelDiversify, d[:], []byte{byte(ctr)})
		if p, ok := group.FromUniform(prf.Field(wide[:])); ok {
			return p, nil
		}
	}
	return group.Point{}, errNoBase
}

// IncomingViewingKey derives payment addresses and recognizes them. It cannot
// recover the spend key.
type IncomingViewingKey struct {
	ivk   group.Scalar
	dk    [DiversifierKeySize]byte
	block cipher.Block
}

func newIncomingViewingKey(ivk group.Scalar, dk [DiversifierKeySize]byte) *IncomingViewingKey {
	block, err := aes.NewCipher(dk[:])
	if err != nil {
		// key length is fixed at 16 bytes
		panic(err)
	}
	return &IncomingViewingKey{ivk: ivk, dk: dk, block: block}
}

// Bytes returns ivk || dk.
func (k *IncomingViewingKey) Bytes() [group.ScalarSize + DiversifierKeySize]byte {
	var out [group.ScalarSize + DiversifierKeySize]byte
	ivkb := k.ivk.Bytes()
	copy(out[:group.ScalarSize], ivkb[:])
	copy(out[group.ScalarSize:], k.dk[:])
	return out
}

// DiversifierForIndex encrypts the address index under dk.
func (k *IncomingViewingKey) DiversifierForIndex(index uint32) Diversifier {
	var in [DiversifierSize]byte
	binary.LittleEndian.PutUint32(in[:], index)
	var d Diversifier
	k.block.Encrypt(d[:], in[:])
	return d
}

// IndexForDiversifier recovers the address index of a diversifier produced by
// this key.
func (k *IncomingViewingKey) IndexForDiversifier(d Diversifier) (uint32, error) {
	var out [DiversifierSize]byte
	k.block.Decrypt(out[:], d[:])
	for _, b := range out[4:] {
		if b != 0 {
			return 0, errors.Wrap(kinds.ErrInvalidKey, "diversifier was not produced by this key")
		}
	}
	return binary.LittleEndian.Uint32(out[:4]), nil
}

// PaymentAddress derives the address at index together with its detection key.
// The same index always yields the same address.
func (k *IncomingViewingKey) PaymentAddress(index uint32) (*Address, DetectionKey, error) {
	d := k.DiversifierForIndex(index)
	gd, err := DiversifiedBase(d)
	if err != nil {
		return nil, DetectionKey{}, errors.Wrapf(kinds.ErrInvalidKey, "index %d: %v", index, err)
	}
	ivkb := k.ivk.Bytes()
	wide := prf.Expand(labelDetection, ivkb[:], d[:])
	dtk := DetectionKey{dtk: group.ScalarFromWide(wide[:])}

	addr := &Address{
		d:   d,
		gd:  gd,
		pkd: gd.Mul(k.ivk),
		ckd: dtk.ClueKey(),
	}
	if addr.pkd.IsIdentity() || addr.ckd.IsIdentity() {
		return nil, DetectionKey{}, errors.Wrapf(kinds.ErrInvalidKey, "index %d: degenerate address", index)
	}
	return addr, dtk, nil
}

// ViewsAddress reports whether addr was derived from this key.
func (k *IncomingViewingKey) ViewsAddress(addr *Address) bool {
	if addr == nil {
		return false
	}
	index, err := k.IndexForDiversifier(addr.d)
	if err != nil {
		return false
	}
	own, _, err := k.PaymentAddress(index)
	if err != nil {
		return false
	}
	return own.Bytes() == addr.Bytes()
}

// DetectionKey lets a third party flag notes sent to one address.
type DetectionKey struct {
	dtk group.Scalar
}

func (k DetectionKey) Bytes() [DetectionKeySize]byte {
	return k.dtk.Bytes()
}

// ClueKey returns the public half, ck_d = dtk·B.
func (k DetectionKey) ClueKey() group.Point {
	return group.Basepoint().Mul(k.dtk)
}

// Address is (d, pk_d, ck_d). g_d and pk_d are never the identity.
type Address struct {
	d   Diversifier
	gd  group.Point
	pkd group.Point
	ckd group.Point
}

// AddressFromComponents rebuilds an address from raw component bytes,
// re-validating group membership of every point.
func AddressFromComponents(d, pkd, ckd []byte) (*Address, error) {
	if len(d) != DiversifierSize {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "diversifier must be %d bytes, got %d", DiversifierSize, len(d))
	}
	addr := &Address{}
	copy(addr.d[:], d)

	gd, err := DiversifiedBase(addr.d)
	if err != nil {
		return nil, errors.Wrap(kinds.ErrInvalidKey, err.Error())
	}
	addr.gd = gd
	if addr.pkd, err = group.DecodeNonIdentity(pkd); err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "transmission key: %v", err)
	}
	if addr.ckd, err = group.DecodeNonIdentity(ckd); err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "clue key: %v", err)
	}
	return addr, nil
}

// AddressFromBytes parses the 80-byte encoding d || pk_d || ck_d.
func AddressFromBytes(b []byte) (*Address, error) {
	if len(b) != AddressSize {
		return nil, errors.Wrapf(kinds.ErrInvalidKey, "address must be %d bytes, got %d", AddressSize, len(b))
	}
	return AddressFromComponents(
		b[:DiversifierSize],
		b[DiversifierSize:DiversifierSize+group.PointSize],
		b[DiversifierSize+group.PointSize:],
	)
}

func (a *Address) Bytes() [AddressSize]byte {
	var out [AddressSize]byte
	pkd := a.pkd.Bytes()
	ckd := a.ckd.Bytes()
	copy(out[:DiversifierSize], a.d[:])
	copy(out[DiversifierSize:], pkd[:])
	copy(out[DiversifierSize+group.PointSize:], ckd[:])
	return out
}

func (a *Address) String() string {
	b := a.Bytes()
	return hex.EncodeToString(b[:])
}

func (a *Address) Diversifier() Diversifier     { return a.d }
func (a *Address) DiversifiedBase() group.Point { return a.gd }
func (a *Address) TransmissionKey() group.Point { return a.pkd }
func (a *Address) ClueKey() group.Point         { return a.ckd }

// Validate re-checks the address invariants. The zero Address is invalid.
func (a *Address) Validate() error {
	gd, err := DiversifiedBase(a.d)
	if err != nil {
		return errors.Wrap(kinds.ErrInvalidKey, err.Error())
	}
	if !gd.Equal(a.gd) {
		return errors.Wrap(kinds.ErrInvalidKey, "diversified base does not match diversifier")
	}
	if a.pkd.IsIdentity() {
		return errors.Wrap(kinds.ErrInvalidKey, "transmission key is the identity")
	}
	if a.ckd.IsIdentity() {
		return errors.Wrap(kinds.ErrInvalidKey, "clue key is the identity")
	}
	return nil
}
