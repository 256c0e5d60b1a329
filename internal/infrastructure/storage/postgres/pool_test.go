package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfig_RuntimeParams(t *testing.T) {
	tests := []struct {
		name string
		cfg  PoolConfig
		want map[string]string
	}{
		{
			name: "defaults",
			cfg:  DefaultPoolConfig("postgres://localhost/glasserp"),
			want: map[string]string{
				"application_name":                    "glasserp",
				"timezone":                            "Asia/Kolkata",
				"statement_timeout":                   "30000",
				"idle_in_transaction_session_timeout": "60000",
			},
		},
		{
			name: "worker without timeouts",
			cfg:  PoolConfig{AppName: "glasserp-worker", Timezone: "UTC"},
			want: map[string]string{
				"application_name": "glasserp-worker",
				"timezone":         "UTC",
			},
		},
		{
			name: "sub-second timeout",
			cfg:  PoolConfig{StatementTimeout: 1500 * time.Millisecond},
			want: map[string]string{"statement_timeout": "1500"},
		},
		{
			name: "empty",
			cfg:  PoolConfig{},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.runtimeParams())
		})
	}
}
