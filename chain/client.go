// Package chain is the ledger-facing side of burnreg: the Client capability
// set the race engine consumes, the amount type it compares, and a JSON-RPC
// implementation of Client.
package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks a transient failure of a ledger query. Callers
	// treat the value as unknown and apply their conservative default.
	ErrUnavailable = errors.New("ledger unavailable")
	// ErrNotRegistered is returned by Membership when the address holds no
	// membership index in the domain.
	ErrNotRegistered = errors.New("not registered")
)

// RejectedError is returned by SubmitRegistration when the ledger refused the
// call (already registered, cost too low, malformed...).
type RejectedError struct {
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("registration rejected: %s", e.Message)
	}
	return fmt.Sprintf("registration rejected (%d): %s", e.Code, e.Message)
}

// DomainID identifies the registration scope (subnet) on the ledger.
type DomainID uint16

func (d DomainID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}

// Address is the hex encoded public key of an account.
type Address string

func AddressFromPubKey(pub []byte) Address {
	return Address("0x" + hex.EncodeToString(pub))
}

// PubKey decodes the public key the address was derived from.
func (a Address) PubKey() ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
}

// Short returns an abbreviated form for log lines.
func (a Address) Short() string {
	s := strings.TrimPrefix(string(a), "0x")
	if len(s) > 8 {
		return s[:8] + "…"
	}
	return s
}

type Head struct {
	Height uint64
	Time   time.Time
}

type Receipt struct {
	Hash string
}

type SubmitOptions struct {
	WaitForInclusion    bool
	WaitForFinalization bool
}

// Registrant is what the ledger needs from an identity to register it:
// the paying (cold) account signs the call, the member (hot) account is the
// one that receives the membership index.
type Registrant interface {
	Label() string
	ColdAddress() Address
	HotAddress() Address
	Sign(msg []byte) []byte
}

//go:generate mockgen -package mocks -destination mocks/client.go . Client

// Client is the set of ledger operations the race engine uses.
// Query failures are reported wrapping ErrUnavailable.
type Client interface {
	Head(ctx context.Context) (Head, error)
	Tempo(ctx context.Context, domain DomainID) (uint64, error)
	RegistrationCost(ctx context.Context, domain DomainID) (Amount, error)
	Balance(ctx context.Context, address Address) (Amount, error)
	SubmitRegistration(
		ctx context.Context,
		registrant Registrant,
		domain DomainID,
		tip Amount,
		opts SubmitOptions,
	) (Receipt, error)
	Membership(ctx context.Context, address Address, domain DomainID) (uint16, error)
}
