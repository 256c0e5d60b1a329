package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"ten digits", "9876543210", "+919876543210", false},
		{"with country code", "+91 98765 43210", "+919876543210", false},
		{"trunk prefix", "09876543210", "+919876543210", false},
		{"too short", "12345", "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNational(t *testing.T) {
	assert.Equal(t, "9876543210", National("+919876543210"))
}
