package chain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/holiman/uint256"
)

// Decimals is the number of base units in one display unit (10^9).
const Decimals = 9

var (
	ErrInvalidAmount = errors.New("invalid amount")

	unitBig = big.NewInt(1_000_000_000)
	unit    = uint256.NewInt(1_000_000_000)
)

// Amount is a non-negative quantity of the chain-native token, held in base
// units. Amounts decoded from floats or from display strings are marked
// approximate: they compare like any other amount but may have lost precision.
type Amount struct {
	base   uint256.Int
	approx bool
}

func NewAmount(base uint64) Amount {
	var a Amount
	a.base.SetUint64(base)
	return a
}

// ParseDecimal parses a display-unit decimal such as "0.01" exactly.
func ParseDecimal(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) || len(fracPart) > Decimals {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	fracPart += strings.Repeat("0", Decimals-len(fracPart))
	v, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromBig(v, false)
}

// ParseBaseUnits parses an integer amount of base units.
func ParseBaseUnits(s string) (Amount, error) {
	if !isDigits(s) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, _ := new(big.Int).SetString(s, 10)
	return fromBig(v, false)
}

// parseDisplayString is the degraded path for amounts the ledger only renders
// for humans, e.g. "1.250000000 τ" or "τ0.5". Only the leading number is used.
func parseDisplayString(s string) (Amount, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	num := strings.TrimLeftFunc(fields[0], func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
	end := strings.IndexFunc(num, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
	if end >= 0 {
		num = num[:end]
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromFloat(f)
}

func fromFloat(f float64) (Amount, error) {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	bf := new(big.Float).SetFloat64(f)
	bf.Mul(bf, new(big.Float).SetInt(unitBig))
	v, _ := bf.Int(nil)
	return fromBig(v, true)
}

func fromBig(v *big.Int, approx bool) (Amount, error) {
	a := Amount{approx: approx}
	if v.Sign() < 0 || a.base.SetFromBig(v) {
		return Amount{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, v)
	}
	return a, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cmp compares two amounts in base units.
func (a Amount) Cmp(b Amount) int {
	return a.base.Cmp(&b.base)
}

func (a Amount) Approx() bool {
	return a.approx
}

func (a Amount) IsZero() bool {
	return a.base.IsZero()
}

// Base returns a copy of the amount in base units.
func (a Amount) Base() *uint256.Int {
	return new(uint256.Int).Set(&a.base)
}

func (a Amount) String() string {
	q := new(uint256.Int).Div(&a.base, unit)
	r := new(uint256.Int).Mod(&a.base, unit)
	s := fmt.Sprintf("%s.%09d", q.ToBig().String(), r.Uint64())
	if a.approx {
		return "~" + s
	}
	return s
}

// MarshalJSON renders the amount as a string of base units.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.base.ToBig().String() + `"`), nil
}

// UnmarshalJSON accepts, in order of preference: an integer (number or
// string) of base units, a fractional number of display units, or a display
// string. The last two yield approximate amounts.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
		}
		if isDigits(s) {
			*a, err = ParseBaseUnits(s)
			return err
		}
		*a, err = parseDisplayString(s)
		return err
	}
	s := string(data)
	if isDigits(s) {
		var err error
		*a, err = ParseBaseUnits(s)
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	*a, err = fromFloat(f)
	return err
}

// UnmarshalFlag implements flags.Unmarshaler.
func (a *Amount) UnmarshalFlag(value string) error {
	v, err := ParseDecimal(value)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
