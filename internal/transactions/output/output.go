// output.go - Proving and verifying that a commitment opens to a well-formed note.
//
// Proofs are Groth16 over BLS12-377 and travel as exactly 192 bytes:
// A (G1, 48) || B (G2, 96) || C (G1, 48), all compressed.

package output

import (
	"encoding/hex"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/twistededwards"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bls12377 "github.com/consensys/gnark/backend/groth16/bls12-377"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	gtwistededwards "github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/pkg/errors"

	"shieldnote/internal/kinds"
	"shieldnote/internal/note"
)

const (
	g1Size    = bls12377.SizeOfG1AffineCompressed
	g2Size    = bls12377.SizeOfG2AffineCompressed
	ProofSize = 2*g1Size + g2Size
)

// Proof is a serialized output proof.
type Proof [ProofSize]byte

// ProofFromBytes checks the length and that every element decodes to a point
// of the right subgroup.
func ProofFromBytes(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, errors.Wrapf(kinds.ErrSerialization, "proof must be %d bytes, got %d", ProofSize, len(b))
	}
	copy(p[:], b)
	if _, err := p.decode(); err != nil {
		return Proof{}, err
	}
	return p, nil
}

func (p Proof) Bytes() []byte {
	return append([]byte(nil), p[:]...)
}

func (p Proof) String() string {
	return hex.EncodeToString(p[:])
}

func (p Proof) decode() (*groth16_bls12377.Proof, error) {
	var gp groth16_bls12377.Proof
	if _, err := gp.Ar.SetBytes(p[:g1Size]); err != nil {
		return nil, errors.Wrapf(kinds.ErrSerialization, "proof A: %v", err)
	}
	if _, err := gp.Bs.SetBytes(p[g1Size : g1Size+g2Size]); err != nil {
		return nil, errors.Wrapf(kinds.ErrSerialization, "proof B: %v", err)
	}
	if _, err := gp.Krs.SetBytes(p[g1Size+g2Size:]); err != nil {
		return nil, errors.Wrapf(kinds.ErrSerialization, "proof C: %v", err)
	}
	return &gp, nil
}

func encodeProof(proof groth16.Proof) (Proof, error) {
	gp, ok := proof.(*groth16_bls12377.Proof)
	if !ok {
		return Proof{}, errors.Wrapf(kinds.ErrProofGeneration, "unexpected proof type %T", proof)
	}
	if len(gp.Commitments) != 0 {
		return Proof{}, errors.Wrap(kinds.ErrProofGeneration, "proof carries commitments")
	}
	var p Proof
	ar := gp.Ar.Bytes()
	bs := gp.Bs.Bytes()
	krs := gp.Krs.Bytes()
	copy(p[:g1Size], ar[:])
	copy(p[g1Size:g1Size+g2Size], bs[:])
	copy(p[g1Size+g2Size:], krs[:])
	return p, nil
}

func toGnarkPoint(p twistededwards.PointAffine) gtwistededwards.Point {
	return gtwistededwards.Point{
		X: fieldVar(p.X),
		Y: fieldVar(p.Y),
	}
}

func fieldVar(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// Assignment builds the full witness for a commitment and its opening.
func Assignment(cm note.Commitment, o *note.Opening) *Circuit {
	return &Circuit{
		Commitment:           cm.BigInt(),
		Amount:               fieldVar(o.Amount),
		Asset:                fieldVar(o.Asset),
		Blinding:             fieldVar(o.Blinding),
		CreditorBase:         toGnarkPoint(o.CreditorBase),
		CreditorTransmission: toGnarkPoint(o.CreditorTransmission),
		DebtorBase:           toGnarkPoint(o.DebtorBase),
		DebtorTransmission:   toGnarkPoint(o.DebtorTransmission),
	}
}

// Prove proves that n opens cm.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, cm note.Commitment, n *note.Note) (Proof, error) {
	if n == nil {
		return Proof{}, errors.Wrap(kinds.ErrProofGeneration, "nil note")
	}
	o := n.Opening()
	return ProveOpening(ccs, pk, cm, &o)
}

// ProveOpening proves knowledge of o opening cm. The proof blinding scalars are
// drawn by the prover from crypto/rand on every call.
func ProveOpening(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, cm note.Commitment, o *note.Opening) (Proof, error) {
	// Step 1: reject inconsistent witnesses before the expensive solve
	if o.Commit() != cm {
		return Proof{}, errors.Wrap(kinds.ErrProofGeneration, "opening does not match commitment")
	}

	// Step 2: build witness
	w, err := frontend.NewWitness(Assignment(cm, o), ecc.BLS12_377.ScalarField())
	if err != nil {
		return Proof{}, errors.Wrapf(kinds.ErrProofGeneration, "witness creation failed: %v", err)
	}

	// Step 3: prove
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return Proof{}, errors.Wrapf(kinds.ErrProofGeneration, "proof generation failed: %v", err)
	}
	return encodeProof(proof)
}

// Verify checks proof against cm. A well-formed proof that does not verify
// yields kinds.ErrVerificationFailed.
func Verify(vk groth16.VerifyingKey, cm note.Commitment, proof Proof) error {
	// Step 1: decode proof
	gp, err := proof.decode()
	if err != nil {
		return err
	}

	// Step 2: public witness
	pub, err := frontend.NewWitness(&Circuit{Commitment: cm.BigInt()}, ecc.BLS12_377.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return errors.Wrapf(kinds.ErrSerialization, "public witness creation failed: %v", err)
	}

	// Step 3: verify
	if err := groth16.Verify(gp, vk, pub); err != nil {
		return errors.Wrap(kinds.ErrVerificationFailed, err.Error())
	}
	return nil
}

// VerifyBytes parses the commitment and proof before verifying; malformed
// buffers fail with kinds.ErrSerialization.
func VerifyBytes(vk groth16.VerifyingKey, commitment, proof []byte) error {
	cm, err := note.CommitmentFromBytes(commitment)
	if err != nil {
		return err
	}
	p, err := ProofFromBytes(proof)
	if err != nil {
		return err
	}
	return Verify(vk, cm, p)
}
