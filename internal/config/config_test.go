package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE", "PRIVILEGED_ROLES", "ACCESS_TOKEN_TTL", "STRICT_PRICING", "TAX_RATE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, []string{"admin"}, cfg.PrivilegedRoles)
	assert.Equal(t, 20*time.Minute, cfg.AccessTokenTTL)
	assert.False(t, cfg.StrictPricing)
	assert.True(t, decimal.NewFromFloat(0.18).Equal(cfg.TaxRate))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("PRIVILEGED_ROLES", "admin, manager,,")
	t.Setenv("ACCESS_TOKEN_TTL", "45")
	t.Setenv("REFRESH_TOKEN_TTL", "-3")
	t.Setenv("STRICT_PRICING", "true")
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("SMTP_PORT", "465")

	cfg := FromEnv()

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, []string{"admin", "manager"}, cfg.PrivilegedRoles)
	assert.Equal(t, 45*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.True(t, cfg.StrictPricing)
	assert.Equal(t, "0.05", cfg.TaxRate.String())
	assert.Equal(t, 465, cfg.SMTPPort)
}

func TestValidate(t *testing.T) {
	cfg := Config{Store: StoreMongo, TaxRate: decimal.Zero, FlatShipping: decimal.Zero}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "MONGO_URI")

	cfg = Config{Store: StoreMemory, JWTSecret: "s", TaxRate: decimal.Zero, FlatShipping: decimal.Zero}
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "production"
	assert.Error(t, cfg.Validate())

	cfg = Config{Store: "postgres", JWTSecret: "s"}
	assert.ErrorContains(t, cfg.Validate(), "STORE")
}
