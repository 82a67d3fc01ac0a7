package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesPriceTiers(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STRIPE_PRICE_TIERS", "price_basic:basic,price_pro:pro")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"price_basic": "basic", "price_pro": "pro"}, cfg.StripePriceTiers)
	require.Equal(t, []string{"https://app.example.com", "https://example.com"}, cfg.AllowedOrigins)
	require.Equal(t, 3, cfg.WebhookMaxAttempts)
	require.Equal(t, 30*time.Second, cfg.OnboardingLockTTL)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
}

func TestRateLimitNormalize(t *testing.T) {
	cfg := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: 0, Burst: 5, RefillEvery: 2 * time.Second}.normalize()
	require.Equal(t, 5, cfg.Capacity)
	require.Equal(t, 1, cfg.RefillTokens)
	require.Equal(t, 2*time.Second, cfg.RefillInterval)
	require.Equal(t, 10*time.Second, cfg.TTL)
}

func TestRedisAddressPrefersHostPort(t *testing.T) {
	require.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "localhost:6379"}.address())
	require.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.address())
}
