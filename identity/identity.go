// Package identity loads the key pairs burnreg races with.
//
// An identity pairs a cold key, which pays for and signs the registration,
// with a hot key, which becomes the member. Only the cold private key is
// needed; the hot side is kept as a public key.
package identity

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
)

var ErrNotFound = errors.New("identity not found")

type Identity struct {
	label string
	cold  ed25519.PrivateKey
	hot   ed25519.PublicKey
}

var _ chain.Registrant = (*Identity)(nil)

func New(label string, cold ed25519.PrivateKey, hot ed25519.PublicKey) *Identity {
	return &Identity{label: label, cold: cold, hot: hot}
}

func (i *Identity) Label() string {
	return i.label
}

func (i *Identity) ColdAddress() chain.Address {
	return chain.AddressFromPubKey(i.cold.Public().(ed25519.PublicKey))
}

func (i *Identity) HotAddress() chain.Address {
	return chain.AddressFromPubKey(i.hot)
}

func (i *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(i.cold, msg)
}

func (i *Identity) String() string {
	return fmt.Sprintf("%s (%s)", i.label, i.HotAddress().Short())
}

type Loader interface {
	Load(label string) (*Identity, error)
}

type firstOf []Loader

// FirstOf returns a Loader trying each loader in turn until one knows the
// label. A loader reporting ErrNotFound passes the label on; any other error
// stops the search.
func FirstOf(loaders ...Loader) Loader {
	return firstOf(loaders)
}

func (f firstOf) Load(label string) (*Identity, error) {
	for _, l := range f {
		id, err := l.Load(label)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return id, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
}

// LoadAll loads the labeled identities, skipping (and logging) the ones that
// fail. Duplicate labels are loaded once. The result keeps the order of labels.
func LoadAll(ctx context.Context, loader Loader, labels []string) []*Identity {
	logger := logging.FromContext(ctx)
	seen := make(map[string]struct{}, len(labels))
	identities := make([]*Identity, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}

		id, err := loader.Load(label)
		if err != nil {
			logger.Warn("could not load identity, skipping", zap.String("label", label), zap.Error(err))
			continue
		}
		logger.Info("loaded identity",
			zap.String("label", label),
			zap.String("coldkey", string(id.ColdAddress())),
			zap.String("hotkey", string(id.HotAddress())),
		)
		identities = append(identities, id)
	}
	return identities
}
