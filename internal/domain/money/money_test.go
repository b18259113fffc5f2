package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "25000", want: 2500000},
		{in: "25000.00", want: 2500000},
		{in: "1250.5", want: 125050},
		{in: " 12.34 ", want: 1234},
		{in: "0.105", want: 11},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: true},
		{in: "1e30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCents_Format(t *testing.T) {
	assert.Equal(t, "₱25000.00", Cents(2500000).Format("₱"))
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, Cents(20000), Cents(10000).Times(2))
}

func TestCents_Mul(t *testing.T) {
	tests := []struct {
		name    string
		c       Cents
		qty     int
		want    Cents
		wantErr bool
	}{
		{name: "simple", c: 100_00, qty: 3, want: 300_00},
		{name: "zero quantity", c: math.MaxInt64, qty: 0, want: 0},
		{name: "max", c: math.MaxInt64, qty: 1, want: math.MaxInt64},
		{name: "overflow", c: math.MaxInt64/2 + 1, qty: 2, wantErr: true},
		{name: "large quantity", c: 10_000_000_000_00, qty: math.MaxInt32, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Mul(tt.qty)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCents_Add(t *testing.T) {
	got, err := Cents(1).Add(2)
	require.NoError(t, err)
	assert.Equal(t, Cents(3), got)

	_, err = Cents(math.MaxInt64).Add(1)
	require.ErrorIs(t, err, ErrOverflow)
}
