package identity

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/burnreg/burnreg/chain"
)

const keystoreExt = ".json"

// keystoreFile is the on-disk format of one identity.
type keystoreFile struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Coldkey   []byte        `json:"coldkey"` // sealed ed25519 seed
	Hotkey    chain.Address `json:"hotkey"`
}

// Keystore keeps identities as password sealed files, one per label.
// The password is requested once and reused for every identity.
type Keystore struct {
	dir      string
	params   SealParams
	password PasswordFunc

	unlock sync.Once
	pw     []byte
	pwErr  error
}

type KeystoreOption func(*Keystore)

func WithSealParams(params SealParams) KeystoreOption {
	return func(ks *Keystore) {
		ks.params = params
	}
}

func NewKeystore(dir string, password PasswordFunc, opts ...KeystoreOption) *Keystore {
	ks := &Keystore{
		dir:      dir,
		params:   DefaultSealParams(),
		password: password,
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks
}

func (ks *Keystore) path(label string) string {
	return filepath.Join(ks.dir, label+keystoreExt)
}

func (ks *Keystore) passphrase() ([]byte, error) {
	ks.unlock.Do(func() {
		ks.pw, ks.pwErr = ks.password()
	})
	return ks.pw, ks.pwErr
}

// Create seals the cold key and stores it with the hot public key.
func (ks *Keystore) Create(label string, cold ed25519.PrivateKey, hot ed25519.PublicKey) error {
	path := ks.path(label)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("identity %q already exists", label)
	}
	if err := os.MkdirAll(ks.dir, 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	pw, err := ks.passphrase()
	if err != nil {
		return fmt.Errorf("keystore password: %w", err)
	}
	sealed, err := seal(cold.Seed(), pw, ks.params)
	if err != nil {
		return fmt.Errorf("seal coldkey: %w", err)
	}
	data, err := json.MarshalIndent(keystoreFile{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Coldkey:   sealed,
		Hotkey:    chain.AddressFromPubKey(hot),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

func (ks *Keystore) Load(label string) (*Identity, error) {
	data, err := os.ReadFile(ks.path(label))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	case err != nil:
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported identity version: %d", kf.Version)
	}
	hot, err := kf.Hotkey.PubKey()
	if err != nil || len(hot) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid hotkey %q", kf.Hotkey)
	}

	pw, err := ks.passphrase()
	if err != nil {
		return nil, fmt.Errorf("keystore password: %w", err)
	}
	seed, err := unseal(kf.Coldkey, pw)
	if err != nil {
		return nil, fmt.Errorf("unseal coldkey of %s: %w", label, err)
	}
	defer zero(seed)
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid coldkey seed length %d", len(seed))
	}
	return New(label, ed25519.NewKeyFromSeed(seed), hot), nil
}

// List returns the labels of all identities in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var labels []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != keystoreExt {
			continue
		}
		labels = append(labels, strings.TrimSuffix(e.Name(), keystoreExt))
	}
	return labels, nil
}

// Import stores an already derived identity under its own label.
func (ks *Keystore) Import(id *Identity) error {
	return ks.Create(id.label, id.cold, id.hot)
}
