package output

import (
	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"

	"shieldnote/internal/note"
)

// Circuit proves knowledge of a note opening the public commitment.
type Circuit struct {
	// Public inputs
	Commitment frontend.Variable `gnark:",public"`

	// Private inputs
	Amount   frontend.Variable
	Asset    frontend.Variable
	Blinding frontend.Variable

	CreditorBase         twistededwards.Point
	CreditorTransmission twistededwards.Point
	DebtorBase           twistededwards.Point
	DebtorTransmission   twistededwards.Point
}

func (c *Circuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BLS12_377)
	if err != nil {
		return err
	}

	// Step 1: every point lies on the curve and is not the identity.
	// x = 0 only for the identity and the point of order two.
	for _, p := range []twistededwards.Point{
		c.CreditorBase,
		c.CreditorTransmission,
		c.DebtorBase,
		c.DebtorTransmission,
	} {
		curve.AssertIsOnCurve(p)
		api.AssertIsDifferent(p.X, 0)
	}

	// Step 2: the amount is a 64-bit integer
	api.ToBinary(c.Amount, 64)

	// Step 3: commitment recomputation
	ds := note.DomainSeparator()
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(
		ds.String(),
		c.Blinding,
		c.Amount,
		c.Asset,
		c.CreditorBase.X, c.CreditorBase.Y,
		c.CreditorTransmission.X, c.CreditorTransmission.Y,
		c.DebtorBase.X, c.DebtorBase.Y,
		c.DebtorTransmission.X, c.DebtorTransmission.Y,
	)
	api.AssertIsEqual(c.Commitment, hasher.Sum())
	return nil
}
