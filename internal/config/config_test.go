package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingMandatory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/glasserp")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("COMPANY_STATE_CODE", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("PAYOUT_MOCK_MODE", "true")
	t.Setenv("REPORT_RECIPIENTS", "a@example.com, b@example.com,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "27", cfg.CompanyStateCode)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Payouts.MockMode)
	assert.Equal(t, DatabaseConfig{AppName: "glasserp", MaxConns: 25, StatementTimeout: 30 * time.Second}, cfg.Database)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.ReportRecipients)
}

func TestLoad_InvalidStateCode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/glasserp")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("COMPANY_STATE_CODE", "270")

	_, err := Load()
	assert.Error(t, err)
}
