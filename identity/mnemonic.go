package identity

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicEnvPrefix prefixes the environment variable holding the mnemonic of
// an identity, e.g. BURNREG_MNEMONIC_MINER_1 for label "miner-1".
const MnemonicEnvPrefix = "BURNREG_MNEMONIC_"

// MnemonicLoader derives identities from BIP-39 mnemonics found in the
// environment. The 64-byte seed yields the cold key from its first half
// and the hot key from its second half.
type MnemonicLoader struct {
	lookup func(string) (string, bool)
}

func NewMnemonicLoader() *MnemonicLoader {
	return &MnemonicLoader{lookup: os.LookupEnv}
}

func MnemonicEnv(label string) string {
	return MnemonicEnvPrefix + strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, label)
}

func (l *MnemonicLoader) Load(label string) (*Identity, error) {
	mnemonic, ok := l.lookup(MnemonicEnv(label))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return FromMnemonic(label, mnemonic)
}

func FromMnemonic(label, mnemonic string) (*Identity, error) {
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("derive seed for %s: %w", label, err)
	}
	cold := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	hot := ed25519.NewKeyFromSeed(seed[ed25519.SeedSize : 2*ed25519.SeedSize])
	return New(label, cold, hot.Public().(ed25519.PublicKey)), nil
}

// GenerateMnemonic returns a fresh 24 word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}
