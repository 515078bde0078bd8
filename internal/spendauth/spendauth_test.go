package spendauth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"lukechampine.com/frand"

	"shieldnote/internal/group"
	"shieldnote/internal/keys"
	"shieldnote/internal/kinds"
	"shieldnote/internal/note"
)

var zeroPhrase = strings.Repeat("abandon ", 23) + "art"

func authKey(t *testing.T, account uint32) AuthKey {
	t.Helper()
	sk, err := keys.DeriveSpendKeyFromString(zeroPhrase, account)
	if err != nil {
		t.Fatal(err)
	}
	return FromSpendKey(sk)
}

func signingKey(t *testing.T, account uint32) (SigningKey, Randomizer) {
	t.Helper()
	r, err := NewRandomizer(frand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return authKey(t, account).Randomize(r), r
}

func TestSignVerify(t *testing.T) {
	rsk, _ := signingKey(t, 0)
	msg := []byte("transfer 30 of asset 1")

	sig, err := rsk.Sign(frand.Reader, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	t.Run("accepts", func(t *testing.T) {
		if !Verify(rsk.VerificationKey(), msg, sig) {
			t.Fatal("valid signature rejected")
		}
	})

	t.Run("rejects other message", func(t *testing.T) {
		other := append([]byte{}, msg...)
		other[0] ^= 1
		if Verify(rsk.VerificationKey(), other, sig) {
			t.Error("signature verified a mutated message")
		}
		if Verify(rsk.VerificationKey(), nil, sig) {
			t.Error("signature verified an empty message")
		}
	})

	t.Run("rejects other key", func(t *testing.T) {
		other, _ := signingKey(t, 0)
		if Verify(other.VerificationKey(), msg, sig) {
			t.Error("signature verified under a different randomization")
		}
		foreign, _ := signingKey(t, 1)
		if Verify(foreign.VerificationKey(), msg, sig) {
			t.Error("signature verified under another account")
		}
	})

	t.Run("rejects flipped bytes", func(t *testing.T) {
		b := sig.Bytes()
		vk := rsk.VerificationKey().Bytes()
		for _, i := range []int{0, 5, group.PointSize, SignatureSize - 1} {
			bad := b
			bad[i] ^= 0x01
			ok, err := VerifyBytes(vk[:], msg, bad[:])
			if ok {
				t.Errorf("flipping byte %d still verifies", i)
			}
			if err != nil && !errors.Is(err, kinds.ErrInvalidSignature) {
				t.Errorf("byte %d: unexpected error kind %v", i, err)
			}
		}
	})

	t.Run("fresh nonce per call", func(t *testing.T) {
		again, err := rsk.Sign(frand.Reader, msg)
		if err != nil {
			t.Fatal(err)
		}
		if again.Bytes() == sig.Bytes() {
			t.Error("two signatures of the same message are identical")
		}
		if !Verify(rsk.VerificationKey(), msg, again) {
			t.Error("second signature rejected")
		}
	})

	t.Run("rng failure", func(t *testing.T) {
		if _, err := rsk.Sign(bytes.NewReader(make([]byte, 10)), msg); err == nil {
			t.Error("expected an error from a short reader")
		}
	})
}

func TestRandomization(t *testing.T) {
	ak := authKey(t, 0)
	r, err := NewRandomizer(frand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	rsk := ak.Randomize(r)

	t.Run("public randomization matches", func(t *testing.T) {
		if !ak.VerificationKey().Randomize(r).Equal(rsk.VerificationKey()) {
			t.Error("ak + r·B != rsk·B")
		}
	})

	t.Run("unlinkable", func(t *testing.T) {
		if rsk.VerificationKey().Equal(ak.VerificationKey()) {
			t.Error("randomized key equals ak")
		}
		r2, _ := NewRandomizer(frand.Reader)
		if ak.Randomize(r2).VerificationKey().Equal(rsk.VerificationKey()) {
			t.Error("two randomizers gave the same key")
		}
	})

	t.Run("randomizer round trip", func(t *testing.T) {
		b := r.Bytes()
		back, err := RandomizerFromBytes(b[:])
		if err != nil {
			t.Fatal(err)
		}
		if !ak.Randomize(back).VerificationKey().Equal(rsk.VerificationKey()) {
			t.Error("parsed randomizer differs")
		}
		if _, err := RandomizerFromBytes(bytes.Repeat([]byte{0xff}, RandomizerSize)); !errors.Is(err, kinds.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})
}

func TestEncoding(t *testing.T) {
	rsk, _ := signingKey(t, 0)
	sig, err := rsk.Sign(frand.Reader, []byte("m"))
	if err != nil {
		t.Fatal(err)
	}
	vk := rsk.VerificationKey().Bytes()
	sb := sig.Bytes()

	if len(vk) != 32 || len(sb) != 64 {
		t.Fatalf("sizes: vk %d, sig %d", len(vk), len(sb))
	}

	t.Run("round trip", func(t *testing.T) {
		k, err := VerificationKeyFromBytes(vk[:])
		if err != nil {
			t.Fatal(err)
		}
		s, err := SignatureFromBytes(sb[:])
		if err != nil {
			t.Fatal(err)
		}
		if !Verify(k, []byte("m"), s) {
			t.Error("parsed signature rejected")
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		id := group.Identity().Bytes()
		for name, b := range map[string][]byte{
			"short":    vk[:31],
			"identity": id[:],
			"garbage":  bytes.Repeat([]byte{0xff}, 32),
		} {
			if _, err := VerifyBytes(b, []byte("m"), sb[:]); !errors.Is(err, kinds.ErrInvalidKey) {
				t.Errorf("%s: expected ErrInvalidKey, got %v", name, err)
			}
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		long := append(sb[:], 0)
		highS := sb
		for i := group.PointSize; i < SignatureSize; i++ {
			highS[i] = 0xff
		}
		for name, b := range map[string][]byte{
			"short":  sb[:63],
			"long":   long,
			"high s": highS[:],
			"empty":  nil,
		} {
			if _, err := VerifyBytes(vk[:], []byte("m"), b); !errors.Is(err, kinds.ErrInvalidSignature) {
				t.Errorf("%s: expected ErrInvalidSignature, got %v", name, err)
			}
		}
	})
}

func TestSignNote(t *testing.T) {
	rsk, _ := signingKey(t, 0)
	var cm note.Commitment
	cm[31] = 42

	signed, err := SignNote(rsk, frand.Reader, cm)
	if err != nil {
		t.Fatal(err)
	}
	if !signed.Verify() {
		t.Fatal("signed note rejected")
	}
	if !Verify(rsk.VerificationKey(), cm[:], signed.Signature) {
		t.Error("signature is not over the commitment bytes")
	}
	signed.Commitment[31] = 43
	if signed.Verify() {
		t.Error("signature verified a different commitment")
	}
}
