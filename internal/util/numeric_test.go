package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "sentinel", input: "N/A", want: 0},
		{name: "leading zeros", input: "00123", want: 123},
		{name: "padded", input: "  4567 ", want: 4567},
		{name: "thousands", input: "1,234", want: 1234},
		{name: "empty", input: "", want: 0},
		{name: "alphanumeric", input: "WO-88", want: 0},
		{name: "decimal", input: "12.5", want: 0},
		{name: "overflow", input: "99999999999999999999999", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CoerceInt(tc.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount("$1,250.00")
	assert.True(t, ok)
	assert.Equal(t, 1250.0, v)

	v, ok = ParseAmount("75,5")
	assert.True(t, ok)
	assert.Equal(t, 75.5, v)

	_, ok = ParseAmount("call for price")
	assert.False(t, ok)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "abc@example.com", SanitizeFileName("<abc@example.com>"))
	assert.Equal(t, "WO_123_pdf", SanitizeFileName("WO 123/pdf"))
	assert.Equal(t, "document", SanitizeFileName("<>"))
}
