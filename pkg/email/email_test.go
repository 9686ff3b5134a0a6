package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreetingName(t *testing.T) {
	tests := []struct {
		name                   string
		casual, first, address string
		want                   string
	}{
		{"prefers casual name", "Jen", "Jennifer", "j@example.com", "Jen"},
		{"falls back to first name", " ", "Jennifer", "j@example.com", "Jennifer"},
		{"derives from address", "", "", "jane.citizen@example.com", "Jane"},
		{"empty local part", "", "", "@example.com", "there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GreetingName(tt.casual, tt.first, tt.address))
		})
	}
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "Luna at FDC Tax <hello@fdctax.com.au>", FormatAddress("Luna at FDC Tax", "hello@fdctax.com.au"))
	assert.Equal(t, "hello@fdctax.com.au", FormatAddress("", "hello@fdctax.com.au"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("ada@example.com"))
	assert.False(t, Valid("Ada <ada@example.com>"))
	assert.False(t, Valid("not-an-address"))
}
