package chain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/burnreg/burnreg/chain"
)

func TestParseDecimal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		base uint64
		err  bool
	}{
		{in: "0.01", base: 10_000_000},
		{in: "1", base: 1_000_000_000},
		{in: "1.5", base: 1_500_000_000},
		{in: ".000000001", base: 1},
		{in: "0.0000000001", err: true},
		{in: "-1", err: true},
		{in: "1.2.3", err: true},
		{in: "abc", err: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			a, err := chain.ParseDecimal(tc.in)
			if tc.err {
				require.ErrorIs(t, err, chain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			require.False(t, a.Approx())
			require.Zero(t, a.Cmp(chain.NewAmount(tc.base)))
		})
	}
}

func TestAmountString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "1.500000000", chain.NewAmount(1_500_000_000).String())
	require.Equal(t, "0.000000001", chain.NewAmount(1).String())

	var approx chain.Amount
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &approx))
	require.Equal(t, "~1.500000000", approx.String())
}

func TestAmountUnmarshalJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		in     string
		base   uint64
		approx bool
	}{
		{name: "integer number", in: `1000`, base: 1000},
		{name: "integer string", in: `"1000"`, base: 1000},
		{name: "fractional number", in: `0.25`, base: 250_000_000, approx: true},
		{name: "display string", in: `"1.250000000 τ"`, base: 1_250_000_000, approx: true},
		{name: "display string with leading symbol", in: `"τ2"`, base: 2_000_000_000, approx: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var a chain.Amount
			require.NoError(t, json.Unmarshal([]byte(tc.in), &a))
			require.Equal(t, tc.approx, a.Approx())
			require.Zero(t, a.Cmp(chain.NewAmount(tc.base)), "got %s", a)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		var a chain.Amount
		require.ErrorIs(t, json.Unmarshal([]byte(`"no number here"`), &a), chain.ErrInvalidAmount)
	})
}

func TestAmountMarshalJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(chain.NewAmount(42))
	require.NoError(t, err)
	require.JSONEq(t, `"42"`, string(data))
}

func TestApproxAmountsStillCompare(t *testing.T) {
	t.Parallel()
	var balance chain.Amount
	require.NoError(t, json.Unmarshal([]byte(`0.5`), &balance))
	cost, err := chain.ParseDecimal("0.6")
	require.NoError(t, err)
	require.Negative(t, balance.Cmp(cost))
	require.Positive(t, cost.Cmp(balance))
}
