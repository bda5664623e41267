package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRecipient(t *testing.T) {
	cases := []struct {
		name  string
		phone string
		want  string
	}{
		{"leading zero swapped", "081234567890", "6281234567890"},
		{"already prefixed", "6281234567890", "6281234567890"},
		{"bare local number", "81234567890", "6281234567890"},
		{"formatting stripped", "+62 812-3456-7890", "6281234567890"},
		{"spaces and dashes with leading zero", "0812 3456 7890", "6281234567890"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatRecipient(tc.phone, "62"))
		})
	}
}
