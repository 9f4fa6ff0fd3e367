package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLookupValue(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{name: "empty", value: ""},
		{name: "simple username", value: "alice"},
		{name: "username with punctuation", value: "alice_b.c-d"},
		{name: "email", value: "alice+social@example.com"},
		{name: "email with quote", value: "o'brien@example.com"},
		{name: "unicode letters", value: "josé"},
		{name: "space", value: "alice smith"},
		{name: "max length", value: strings.Repeat("a", MaxLookupLength)},
		{name: "max length in runes", value: strings.Repeat("é", MaxLookupLength)},
		{name: "too long", value: strings.Repeat("a", MaxLookupLength+1), wantErr: ErrLookupTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLookupValue(tt.value)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
