package quotation

import (
	"testing"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDecimal(t *testing.T) {
	cases := []struct {
		name string
		in   *pb.Quotation
		want string
	}{
		{"nil", nil, "0"},
		{"integer", &pb.Quotation{Units: 114}, "114"},
		{"fraction", &pb.Quotation{Units: 4, Nano: 500000000}, "4.5"},
		{"small fraction", &pb.Quotation{Units: 0, Nano: 10000000}, "0.01"},
		{"negative", &pb.Quotation{Units: -2, Nano: -250000000}, "-2.25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToDecimal(tc.in).String())
		})
	}
}

func TestFromDecimalRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "4.51", "123.456789", "-10.5", "0.000000001"} {
		d := decimal.RequireFromString(raw)
		q := FromDecimal(d)
		require.True(t, ToDecimal(q).Equal(d), "round trip of %s gave %s", raw, ToDecimal(q))
	}
}

func TestRoundToStep(t *testing.T) {
	step := decimal.RequireFromString("0.01")
	cases := []struct {
		candidate string
		want      string
	}{
		{"4.51", "4.51"},
		{"4.514", "4.51"},
		{"4.515", "4.52"}, // half rounds up
		{"4.505", "4.51"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := RoundToStep(decimal.RequireFromString(tc.candidate), step)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"round %s to step %s: got %s, want %s", tc.candidate, step, got, tc.want)
	}
}

func TestRoundToStepIdempotent(t *testing.T) {
	for _, stepRaw := range []string{"0.01", "0.05", "0.5", "1"} {
		step := decimal.RequireFromString(stepRaw)
		for _, raw := range []string{"4.507", "9.999", "0.004", "123.4567"} {
			once := RoundToStep(decimal.RequireFromString(raw), step)
			twice := RoundToStep(once, step)
			require.True(t, once.Equal(twice), "step %s candidate %s: %s != %s", stepRaw, raw, once, twice)
		}
	}
}

func TestRoundToStepZeroStep(t *testing.T) {
	candidate := decimal.RequireFromString("4.514")
	assert.True(t, RoundToStep(candidate, decimal.Zero).Equal(candidate))
}
