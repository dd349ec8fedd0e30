package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     int64
	}{
		{"12.34", "INR", 1234},
		{"0.01", "USD", 1},
		{"150", "INR", 15000},
		{"0.1", "EUR", 10},
		{"500", "JPY", 500},
		{"1.234", "KWD", 1234},
		{"-3.50", "INR", -350},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in, tt.currency)
		require.NoError(t, err, "Parse(%q, %s)", tt.in, tt.currency)
		assert.Equal(t, tt.want, got, "Parse(%q, %s)", tt.in, tt.currency)
	}
}

func TestParse_ExcessPrecisionRejected(t *testing.T) {
	_, err := Parse("12.345", "INR")
	require.Error(t, err)

	_, err = Parse("1.5", "JPY")
	require.Error(t, err)
}

func TestParse_Garbage(t *testing.T) {
	for _, in := range []string{"", "abc", "12,34", "1.2.3"} {
		_, err := Parse(in, "INR")
		assert.Error(t, err, "Parse(%q)", in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.34", Format(1234, "INR"))
	assert.Equal(t, "0.01", Format(1, "USD"))
	assert.Equal(t, "-3.50", Format(-350, "EUR"))
	assert.Equal(t, "500", Format(500, "JPY"))
	assert.Equal(t, "1.234", Format(1234, "KWD"))
}

func TestParseFormatInverse(t *testing.T) {
	for _, s := range []string{"0.00", "12.34", "99999.99"} {
		minor, err := Parse(s, "INR")
		require.NoError(t, err)
		assert.Equal(t, s, Format(minor, "INR"))
	}
}
