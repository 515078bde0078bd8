// note.go - Payment notes and their commitments.
//
// A note binds a debtor and a creditor address to a value. Its commitment is a
// MiMC hash over the BLS12-377 scalar field so the output circuit can recompute
// it natively.

package note

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bls12-377/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards"
	"github.com/pkg/errors"

	"shieldnote/internal/keys"
	"shieldnote/internal/kinds"
	"shieldnote/internal/prf"
)

const (
	RseedSize      = 32
	CommitmentSize = fr.Bytes
	// NoteSize is debtor || creditor || amount (8, big-endian) || asset || rseed.
	NoteSize = 2*keys.AddressSize + 8 + fr.Bytes + RseedSize

	labelNoteBlind  = "shieldnote/noteblind"
	labelCommitment = "shieldnote/note"
)

// DomainSeparator is the first input of every note commitment.
func DomainSeparator() fr.Element {
	return prf.DomainSeparator(labelCommitment)
}

// Rseed is the per-note randomness. It must never be reused.
type Rseed [RseedSize]byte

// NewRseed reads a fresh rseed from rng.
func NewRseed(rng io.Reader) (Rseed, error) {
	var r Rseed
	if _, err := io.ReadFull(rng, r[:]); err != nil {
		return Rseed{}, errors.Wrap(err, "read rseed")
	}
	return r, nil
}

func RseedFromBytes(b []byte) (Rseed, error) {
	var r Rseed
	if len(b) != RseedSize {
		return r, errors.Wrapf(kinds.ErrSerialization, "rseed must be %d bytes, got %d", RseedSize, len(b))
	}
	copy(r[:], b)
	return r, nil
}

// Blinding derives the commitment blinding factor.
func (r Rseed) Blinding() fr.Element {
	wide := prf.Expand(labelNoteBlind, r[:])
	return prf.Field(wide[:])
}

// Note is a payment from debtor to creditor. The caller must keep it until
// every proof over its commitment has been produced.
type Note struct {
	debtor   *keys.Address
	creditor *keys.Address
	value    Value
	rseed    Rseed
}

// FromParts validates both addresses and assembles a note.
func FromParts(debtor, creditor *keys.Address, value Value, rseed Rseed) (*Note, error) {
	if debtor == nil || creditor == nil {
		return nil, errors.Wrap(kinds.ErrInvalidNote, "missing address")
	}
	if err := debtor.Validate(); err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidNote, "debtor: %v", err)
	}
	if err := creditor.Validate(); err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidNote, "creditor: %v", err)
	}
	return &Note{
		debtor:   debtor,
		creditor: creditor,
		value:    value,
		rseed:    rseed,
	}, nil
}

func (n *Note) Debtor() *keys.Address   { return n.debtor }
func (n *Note) Creditor() *keys.Address { return n.creditor }
func (n *Note) Value() Value            { return n.value }
func (n *Note) Rseed() Rseed            { return n.rseed }

// Bytes encodes the note so it can be kept until its proofs are produced.
func (n *Note) Bytes() [NoteSize]byte {
	var out [NoteSize]byte
	debtor := n.debtor.Bytes()
	creditor := n.creditor.Bytes()
	asset := n.value.Asset.Bytes()

	off := copy(out[:], debtor[:])
	off += copy(out[off:], creditor[:])
	binary.BigEndian.PutUint64(out[off:], n.value.Amount)
	off += 8
	off += copy(out[off:], asset[:])
	copy(out[off:], n.rseed[:])
	return out
}

// NoteFromBytes parses the Bytes encoding and re-validates both addresses.
func NoteFromBytes(b []byte) (*Note, error) {
	if len(b) != NoteSize {
		return nil, errors.Wrapf(kinds.ErrSerialization, "note must be %d bytes, got %d", NoteSize, len(b))
	}
	debtor, err := keys.AddressFromBytes(b[:keys.AddressSize])
	if err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidNote, "debtor: %v", err)
	}
	off := keys.AddressSize
	creditor, err := keys.AddressFromBytes(b[off : off+keys.AddressSize])
	if err != nil {
		return nil, errors.Wrapf(kinds.ErrInvalidNote, "creditor: %v", err)
	}
	off += keys.AddressSize
	amount := binary.BigEndian.Uint64(b[off:])
	off += 8
	asset, err := AssetIDFromBytes(b[off : off+fr.Bytes])
	if err != nil {
		return nil, err
	}
	off += fr.Bytes
	var rseed Rseed
	copy(rseed[:], b[off:])
	return FromParts(debtor, creditor, Value{Amount: amount, Asset: asset}, rseed)
}

// Opening returns the field-level witness of the commitment.
func (n *Note) Opening() Opening {
	var amount fr.Element
	amount.SetUint64(n.value.Amount)
	return Opening{
		Blinding:             n.rseed.Blinding(),
		Amount:               amount,
		Asset:                n.value.Asset.Element(),
		CreditorBase:         n.creditor.DiversifiedBase().Affine(),
		CreditorTransmission: n.creditor.TransmissionKey().Affine(),
		DebtorBase:           n.debtor.DiversifiedBase().Affine(),
		DebtorTransmission:   n.debtor.TransmissionKey().Affine(),
	}
}

// Commit computes the note commitment. It is deterministic.
func (n *Note) Commit() Commitment {
	o := n.Opening()
	return o.Commit()
}

// Opening holds every value hashed into a commitment.
type Opening struct {
	Blinding fr.Element
	Amount   fr.Element
	Asset    fr.Element

	CreditorBase         twistededwards.PointAffine
	CreditorTransmission twistededwards.PointAffine
	DebtorBase           twistededwards.PointAffine
	DebtorTransmission   twistededwards.PointAffine
}

// Inputs lists the hash inputs in commitment order, domain separator first.
func (o *Opening) Inputs() []fr.Element {
	return []fr.Element{
		DomainSeparator(),
		o.Blinding,
		o.Amount,
		o.Asset,
		o.CreditorBase.X, o.CreditorBase.Y,
		o.CreditorTransmission.X, o.CreditorTransmission.Y,
		o.DebtorBase.X, o.DebtorBase.Y,
		o.DebtorTransmission.X, o.DebtorTransmission.Y,
	}
}

func (o *Opening) Commit() Commitment {
	h := mimcNative.NewMiMC()
	for _, e := range o.Inputs() {
		b := e.Bytes()
		h.Write(b[:])
	}
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// Commitment is a canonical big-endian field element.
type Commitment [CommitmentSize]byte

// CommitmentFromBytes rejects wrong lengths and values outside the field.
func CommitmentFromBytes(b []byte) (Commitment, error) {
	var c Commitment
	if len(b) != CommitmentSize {
		return c, errors.Wrapf(kinds.ErrSerialization, "commitment must be %d bytes, got %d", CommitmentSize, len(b))
	}
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return c, errors.Wrapf(kinds.ErrSerialization, "commitment: %v", err)
	}
	copy(c[:], b)
	return c, nil
}

func (c Commitment) Element() fr.Element {
	var e fr.Element
	e.SetBytes(c[:])
	return e
}

func (c Commitment) BigInt() *big.Int {
	return new(big.Int).SetBytes(c[:])
}

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}
