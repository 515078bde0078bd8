package keys

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"shieldnote/internal/kinds"
)

// EntropySize is the number of random bytes behind a 24-word phrase.
const EntropySize = 32

// SeedPhrase is a validated BIP39 English mnemonic.
type SeedPhrase struct {
	words string
}

// SeedPhraseFromRandomness encodes 32 bytes of entropy as a 24-word phrase.
func SeedPhraseFromRandomness(entropy []byte) (SeedPhrase, error) {
	if len(entropy) != EntropySize {
		return SeedPhrase{}, errors.Wrapf(kinds.ErrInvalidSeed, "entropy must be %d bytes, got %d", EntropySize, len(entropy))
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return SeedPhrase{}, errors.Wrap(kinds.ErrInvalidSeed, err.Error())
	}
	return SeedPhrase{words: m}, nil
}

// NewSeedPhrase draws fresh entropy from rng.
func NewSeedPhrase(rng io.Reader) (SeedPhrase, error) {
	entropy := make([]byte, EntropySize)
	if _, err := io.ReadFull(rng, entropy); err != nil {
		return SeedPhrase{}, errors.Wrap(err, "read seed entropy")
	}
	return SeedPhraseFromRandomness(entropy)
}

// ParseSeedPhrase validates a 12 or 24 word mnemonic. Case and runs of
// whitespace are normalized.
func ParseSeedPhrase(s string) (SeedPhrase, error) {
	words := strings.Fields(strings.ToLower(s))
	if len(words) != 12 && len(words) != 24 {
		return SeedPhrase{}, errors.Wrapf(kinds.ErrInvalidSeed, "expected 12 or 24 words, got %d", len(words))
	}
	joined := strings.Join(words, " ")
	if _, err := bip39.EntropyFromMnemonic(joined); err != nil {
		return SeedPhrase{}, errors.Wrap(kinds.ErrInvalidSeed, err.Error())
	}
	return SeedPhrase{words: joined}, nil
}

func (p SeedPhrase) String() string {
	return p.words
}

func (p SeedPhrase) Words() []string {
	return strings.Fields(p.words)
}

func (p SeedPhrase) valid() bool {
	return p.words != ""
}

// accountPath is the BIP44 path for account under the shielded coin type.
func accountPath(account uint32) string {
	return fmt.Sprintf("m/44'/%d'/%d'", coinType, account)
}
