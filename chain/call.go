package chain

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/spacemeshos/go-scale"
)

var (
	ErrSignatureInvalid = errors.New("signature is invalid")
	ErrInvalidPubkeyLen = errors.New("pubkey has invalid length")
)

// registrationCall is the burned-register call body signed by the cold key.
type registrationCall struct {
	Domain uint16
	Hotkey []byte
	Tip    [32]byte
	Nonce  uint64
}

func (c *registrationCall) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact16(enc, c.Domain)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, c.Hotkey, ed25519.PublicKeySize)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteArray(enc, c.Tip[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, c.Nonce)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func newRegistrationCall(r Registrant, domain DomainID, tip Amount, nonce uint64) (*registrationCall, error) {
	hot, err := r.HotAddress().PubKey()
	if err != nil {
		return nil, fmt.Errorf("decoding hotkey of %s: %w", r.Label(), err)
	}
	if len(hot) != ed25519.PublicKeySize {
		return nil, ErrInvalidPubkeyLen
	}
	return &registrationCall{
		Domain: uint16(domain),
		Hotkey: hot,
		Tip:    tip.Base().Bytes32(),
		Nonce:  nonce,
	}, nil
}

// signCall encodes the call and signs its digest with the registrant's cold key.
func signCall(r Registrant, call *registrationCall) (payload, signature []byte, err error) {
	var buf bytes.Buffer
	if _, err := call.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize call (%w)", err)
	}
	digest := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), r.Sign(digest[:]), nil
}

// VerifyCall checks a signature produced for payload by the owner of cold.
func VerifyCall(cold Address, payload, signature []byte) error {
	pub, err := cold.PubKey()
	if err != nil {
		return err
	}
	if len(pub) != ed25519.PublicKeySize {
		return ErrInvalidPubkeyLen
	}
	digest := sha256.Sum256(payload)
	if !ed25519.Verify(pub, digest[:], signature) {
		return ErrSignatureInvalid
	}
	return nil
}
