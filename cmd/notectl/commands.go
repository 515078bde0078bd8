// commands.go - Subcommands of notectl
package main

import (
	"context"
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"shieldnote/internal/keys"
	"shieldnote/internal/kinds"
	"shieldnote/internal/note"
	"shieldnote/internal/spendauth"
	"shieldnote/internal/transactions/output"
)

// decodeHex parses a hex flag, tagging failures with kind.
func decodeHex(flag, s string, kind error) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrapf(kind, "--%s: %v", flag, err)
	}
	return b, nil
}

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

type AccountArgs struct {
	Phrase  string `arg:"--phrase,env:NOTECTL_PHRASE" help:"BIP39 seed phrase"`
	Account uint32 `arg:"--account" help:"account number"`
}

func (a AccountArgs) spendKey() (*keys.SpendKey, error) {
	if a.Phrase == "" {
		return nil, errors.Wrap(kinds.ErrInvalidSeed, "--phrase or NOTECTL_PHRASE is required")
	}
	return keys.DeriveSpendKeyFromString(a.Phrase, a.Account)
}

// keygen

type keygenCmd struct {
	AccountArgs
}

type keygenResult struct {
	Phrase               string `json:"phrase,omitempty"`
	Account              uint32 `json:"account"`
	FullViewingKey       string `json:"full_viewing_key"`
	SpendVerificationKey string `json:"spend_verification_key"`
	IncomingViewingKey   string `json:"incoming_viewing_key"`
	Address              string `json:"address"`
}

func (c *keygenCmd) run(ctx context.Context, a *app) (interface{}, error) {
	res := keygenResult{Account: c.Account}
	if c.Phrase == "" {
		phrase, err := keys.NewSeedPhrase(a.rng)
		if err != nil {
			return nil, err
		}
		c.Phrase = phrase.String()
		res.Phrase = c.Phrase
	}
	sk, err := c.spendKey()
	if err != nil {
		return nil, err
	}
	fvk := sk.FullViewingKey()
	addr, _, err := fvk.Incoming().PaymentAddress(0)
	if err != nil {
		return nil, err
	}

	fvkBytes := fvk.Bytes()
	ak := fvk.SpendVerificationKey().Bytes()
	ivk := fvk.Incoming().Bytes()
	res.FullViewingKey = encodeHex(fvkBytes[:])
	res.SpendVerificationKey = encodeHex(ak[:])
	res.IncomingViewingKey = encodeHex(ivk[:])
	res.Address = addr.String()

	a.log.Audit("account_derived", map[string]interface{}{"account": c.Account, "generated": res.Phrase != ""})
	return res, nil
}

// address

type addressCmd struct {
	AccountArgs
	FullViewingKey string `arg:"--fvk,env:NOTECTL_FVK" help:"full viewing key, used instead of --phrase"`
	Index          uint32 `arg:"--index" help:"address index"`
}

type addressResult struct {
	Index        uint32 `json:"index"`
	Address      string `json:"address"`
	Diversifier  string `json:"diversifier"`
	DetectionKey string `json:"detection_key"`
}

func (c *addressCmd) run(ctx context.Context, a *app) (interface{}, error) {
	var fvk *keys.FullViewingKey
	if c.FullViewingKey != "" {
		b, err := decodeHex("fvk", c.FullViewingKey, kinds.ErrInvalidKey)
		if err != nil {
			return nil, err
		}
		if fvk, err = keys.FullViewingKeyFromBytes(b); err != nil {
			return nil, err
		}
	} else {
		sk, err := c.spendKey()
		if err != nil {
			return nil, err
		}
		fvk = sk.FullViewingKey()
	}

	addr, dtk, err := fvk.Incoming().PaymentAddress(c.Index)
	if err != nil {
		return nil, err
	}
	d := addr.Diversifier()
	dk := dtk.Bytes()
	return addressResult{
		Index:        c.Index,
		Address:      addr.String(),
		Diversifier:  encodeHex(d[:]),
		DetectionKey: encodeHex(dk[:]),
	}, nil
}

// note

type NoteArgs struct {
	Note     string `arg:"--note" help:"encoded note printed by the note command, instead of the fields below"`
	Creditor string `arg:"--creditor" help:"creditor address"`
	Debtor   string `arg:"--debtor" help:"debtor address, defaults to the creditor"`
	Amount   uint64 `arg:"--amount" help:"amount"`
	Asset    uint64 `arg:"--asset" default:"1" help:"numeric asset id"`
	AssetID  string `arg:"--asset-id" help:"32-byte asset id, overrides --asset"`
	Rseed    string `arg:"--rseed" help:"note randomness, drawn fresh when empty"`
}

func (n NoteArgs) build(a *app) (*note.Note, error) {
	if n.Note != "" {
		b, err := decodeHex("note", n.Note, kinds.ErrSerialization)
		if err != nil {
			return nil, err
		}
		return note.NoteFromBytes(b)
	}
	if n.Creditor == "" {
		return nil, errors.Wrap(kinds.ErrInvalidNote, "--creditor or --note is required")
	}
	creditor, err := parseAddress("creditor", n.Creditor)
	if err != nil {
		return nil, errors.Wrap(kinds.ErrInvalidNote, err.Error())
	}
	debtor := creditor
	if n.Debtor != "" {
		if debtor, err = parseAddress("debtor", n.Debtor); err != nil {
			return nil, errors.Wrap(kinds.ErrInvalidNote, err.Error())
		}
	}

	value := note.NewValue(n.Amount, n.Asset)
	if n.AssetID != "" {
		b, err := decodeHex("asset-id", n.AssetID, kinds.ErrInvalidNote)
		if err != nil {
			return nil, err
		}
		if value.Asset, err = note.AssetIDFromBytes(b); err != nil {
			return nil, err
		}
	}

	var rseed note.Rseed
	if n.Rseed == "" {
		rseed, err = note.NewRseed(a.rng)
	} else {
		var b []byte
		if b, err = decodeHex("rseed", n.Rseed, kinds.ErrSerialization); err == nil {
			rseed, err = note.RseedFromBytes(b)
		}
	}
	if err != nil {
		return nil, err
	}
	return note.FromParts(debtor, creditor, value, rseed)
}

func parseAddress(flag, s string) (*keys.Address, error) {
	b, err := decodeHex(flag, s, kinds.ErrInvalidKey)
	if err != nil {
		return nil, err
	}
	return keys.AddressFromBytes(b)
}

type noteCmd struct {
	NoteArgs
}

type NoteResult struct {
	Note       string `json:"note"`
	Commitment string `json:"commitment"`
	Rseed      string `json:"rseed"`
	Amount     uint64 `json:"amount"`
	Asset      string `json:"asset"`
	Debtor     string `json:"debtor"`
	Creditor   string `json:"creditor"`
}

func describeNote(n *note.Note) NoteResult {
	cm := n.Commit()
	rseed := n.Rseed()
	asset := n.Value().Asset.Bytes()
	enc := n.Bytes()
	return NoteResult{
		Note:       encodeHex(enc[:]),
		Commitment: encodeHex(cm[:]),
		Rseed:      encodeHex(rseed[:]),
		Amount:     n.Value().Amount,
		Asset:      encodeHex(asset[:]),
		Debtor:     n.Debtor().String(),
		Creditor:   n.Creditor().String(),
	}
}

func (c *noteCmd) run(ctx context.Context, a *app) (interface{}, error) {
	n, err := c.build(a)
	if err != nil {
		return nil, err
	}
	return describeNote(n), nil
}

// sign

type signCmd struct {
	AccountArgs
	Message    string `arg:"--message" help:"message to sign"`
	Commitment string `arg:"--commitment" help:"note commitment to sign, instead of --message"`
	Randomizer string `arg:"--randomizer" help:"spend key randomizer, drawn fresh when empty"`
}

type signResult struct {
	VerificationKey string `json:"verification_key"`
	Randomizer      string `json:"randomizer"`
	Signature       string `json:"signature"`
}

func (c *signCmd) run(ctx context.Context, a *app) (interface{}, error) {
	if (c.Message == "") == (c.Commitment == "") {
		return nil, errors.New("exactly one of --message and --commitment is required")
	}
	sk, err := c.spendKey()
	if err != nil {
		return nil, err
	}

	var r spendauth.Randomizer
	if c.Randomizer == "" {
		r, err = spendauth.NewRandomizer(a.rng)
	} else {
		var b []byte
		if b, err = decodeHex("randomizer", c.Randomizer, kinds.ErrInvalidKey); err == nil {
			r, err = spendauth.RandomizerFromBytes(b)
		}
	}
	if err != nil {
		return nil, err
	}
	rsk := spendauth.FromSpendKey(sk).Randomize(r)

	var sig spendauth.Signature
	if c.Commitment != "" {
		b, err := decodeHex("commitment", c.Commitment, kinds.ErrSerialization)
		if err != nil {
			return nil, err
		}
		cm, err := note.CommitmentFromBytes(b)
		if err != nil {
			return nil, err
		}
		signed, err := spendauth.SignNote(rsk, a.rng, cm)
		if err != nil {
			return nil, err
		}
		sig = signed.Signature
	} else {
		msg, err := decodeHex("message", c.Message, kinds.ErrSerialization)
		if err != nil {
			return nil, err
		}
		if sig, err = rsk.Sign(a.rng, msg); err != nil {
			return nil, err
		}
	}
	a.metrics.RecordSignature("sign")

	vk := rsk.VerificationKey().Bytes()
	rb := r.Bytes()
	sb := sig.Bytes()
	return signResult{
		VerificationKey: encodeHex(vk[:]),
		Randomizer:      encodeHex(rb[:]),
		Signature:       encodeHex(sb[:]),
	}, nil
}

// verify-sig

type verifySigCmd struct {
	VerificationKey string `arg:"--vk,required" help:"randomized verification key"`
	Message         string `arg:"--message,required" help:"signed message or commitment"`
	Signature       string `arg:"--signature,required" help:"signature"`
}

type validResult struct {
	Valid bool `json:"valid"`
}

func (c *verifySigCmd) run(ctx context.Context, a *app) (interface{}, error) {
	vk, err := decodeHex("vk", c.VerificationKey, kinds.ErrInvalidKey)
	if err != nil {
		return nil, err
	}
	msg, err := decodeHex("message", c.Message, kinds.ErrSerialization)
	if err != nil {
		return nil, err
	}
	sig, err := decodeHex("signature", c.Signature, kinds.ErrInvalidSignature)
	if err != nil {
		return nil, err
	}
	ok, err := spendauth.VerifyBytes(vk, msg, sig)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordSignature("verify")
	if !ok {
		return validResult{}, errors.Wrap(kinds.ErrVerificationFailed, "signature does not verify")
	}
	return validResult{Valid: true}, nil
}

// setup

type setupCmd struct{}

type setupResult struct {
	Generated    bool   `json:"generated"`
	ProvingKey   string `json:"proving_key"`
	VerifyingKey string `json:"verifying_key"`
}

func (c *setupCmd) run(ctx context.Context, a *app) (interface{}, error) {
	if _, err := a.prover(); err != nil {
		return nil, err
	}
	return setupResult{
		Generated:    a.generated,
		ProvingKey:   a.cfg.ProvingKey(),
		VerifyingKey: a.cfg.VerifyingKey(),
	}, nil
}

// prove

type proveCmd struct {
	NoteArgs
	NoWait bool `arg:"--no-wait" help:"fail with exit 75 instead of queueing when every prover is busy"`
}

type proveResult struct {
	NoteResult
	Proof string `json:"proof"`
}

func (c *proveCmd) run(ctx context.Context, a *app) (interface{}, error) {
	n, err := c.build(a)
	if err != nil {
		return nil, err
	}
	s, err := a.prover()
	if err != nil {
		return nil, err
	}
	cm := n.Commit()
	var proof output.Proof
	if c.NoWait {
		proof, err = s.TryProve(cm, n)
	} else {
		proof, err = s.Prove(ctx, cm, n)
	}
	if err != nil {
		return nil, err
	}
	return proveResult{NoteResult: describeNote(n), Proof: proof.String()}, nil
}

// verify

type verifyCmd struct {
	Commitment string `arg:"--commitment,required" help:"note commitment"`
	Proof      string `arg:"--proof,required" help:"output proof"`
}

// run needs only the verifying key, so it never triggers a setup.
func (c *verifyCmd) run(ctx context.Context, a *app) (interface{}, error) {
	cm, err := decodeHex("commitment", c.Commitment, kinds.ErrSerialization)
	if err != nil {
		return nil, err
	}
	proof, err := decodeHex("proof", c.Proof, kinds.ErrSerialization)
	if err != nil {
		return nil, err
	}
	vk, err := output.LoadVerifyingKey(a.cfg.VerifyingKey())
	if err != nil {
		return nil, errors.Wrap(err, "run setup first")
	}
	start := time.Now()
	err = output.VerifyBytes(vk, cm, proof)
	a.metrics.RecordVerification(err == nil, time.Since(start))
	if err != nil {
		return validResult{}, err
	}
	return validResult{Valid: true}, nil
}

// health

type healthCmd struct {
	Prove bool `arg:"--prove" help:"also prove and verify a note, running setup if needed"`
}

func (c *healthCmd) run(ctx context.Context, a *app) (interface{}, error) {
	hc := NewHealthChecker(version)
	hc.RegisterComponent("config", func(context.Context) error {
		return a.cfg.Validate()
	})
	hc.RegisterComponent("keys", func(context.Context) error {
		for _, p := range []string{a.cfg.ProvingKey(), a.cfg.VerifyingKey()} {
			if _, err := os.Stat(p); os.IsNotExist(err) {
				return degradedError{msg: p + " missing, run setup"}
			} else if err != nil {
				return err
			}
		}
		return nil
	})
	hc.RegisterComponent("commitment", func(context.Context) error {
		_, err := selfTestNote()
		return err
	})
	hc.RegisterComponent("signature", func(context.Context) error {
		return selfTestSignature(a)
	})
	if c.Prove {
		hc.RegisterComponent("prover", func(ctx context.Context) error {
			return selfTestProver(ctx, a)
		})
	}

	health := hc.CheckHealth(ctx)
	res := CreateHealthResponse(health)
	if health.OverallStatus == Unhealthy {
		return res, errors.New(res.Message)
	}
	return res, nil
}

// selfTestPhrase is the all-zero entropy phrase.
var selfTestPhrase = strings.Repeat("abandon ", 23) + "art"

const selfTestCommitment = "0cbe2d28552aca9ec9c3df0ec6c5cae67bc55e300f386fee6f658b4c9a9def17"

// selfTestNote rebuilds a known note and checks its commitment.
func selfTestNote() (*note.Note, error) {
	sk, err := keys.DeriveSpendKeyFromString(selfTestPhrase, 0)
	if err != nil {
		return nil, err
	}
	addr, _, err := sk.FullViewingKey().Incoming().PaymentAddress(0)
	if err != nil {
		return nil, err
	}
	n, err := note.FromParts(addr, addr, note.NewValue(30, 1), note.Rseed{})
	if err != nil {
		return nil, err
	}
	if got := n.Commit().String(); got != selfTestCommitment {
		return nil, errors.Errorf("commitment mismatch: got %s", got)
	}
	return n, nil
}

func selfTestSignature(a *app) error {
	sk, err := keys.DeriveSpendKeyFromString(selfTestPhrase, 0)
	if err != nil {
		return err
	}
	r, err := spendauth.NewRandomizer(a.rng)
	if err != nil {
		return err
	}
	rsk := spendauth.FromSpendKey(sk).Randomize(r)
	msg := []byte("notectl self test")
	sig, err := rsk.Sign(a.rng, msg)
	if err != nil {
		return err
	}
	if !spendauth.Verify(rsk.VerificationKey(), msg, sig) {
		return errors.New("signature did not verify")
	}
	if spendauth.Verify(rsk.VerificationKey(), msg[1:], sig) {
		return errors.New("signature verified a different message")
	}
	return nil
}

func selfTestProver(ctx context.Context, a *app) error {
	n, err := selfTestNote()
	if err != nil {
		return err
	}
	s, err := a.prover()
	if err != nil {
		return err
	}
	cm := n.Commit()
	proof, err := s.Prove(ctx, cm, n)
	if err != nil {
		return err
	}
	return s.Verify(cm, proof)
}
