package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "railway",
		"DB_HOST":                "localhost",
		"DB_PORT":                "3306",
		"DB_NAME":                "railway",
		"JWT_SECRET":             "secret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
		"BCRYPT_COST":            "4",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)
	cfg := Load(logrus.New())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.True(t, cfg.AllowEmptyOrders)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, "@hourly", cfg.TokenCleanupSpec)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEmptyOrdersCanBeDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOW_EMPTY_ORDERS", "false")
	cfg := Load(logrus.New())
	assert.False(t, cfg.AllowEmptyOrders)
}

func TestDecodeReportsMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	var cfg Config
	require.Error(t, decode(&cfg))
}

func TestLoadCacheConfigParsesMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get|head")
	t.Setenv("CACHE_TTL", "45s")
	cfg := LoadCacheConfig(logrus.New())

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 45*time.Second, cfg.TTL)
}

func TestRateLimitNormalize(t *testing.T) {
	cfg := RateLimitConfig{Capacity: 0, RefillTokens: -1, RefillInterval: 0, TTL: time.Second}.normalize()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestRedisAddressPrefersHostPort(t *testing.T) {
	assert.Equal(t, "redis:6380", RedisConfig{Host: "redis", Port: "6380", Addr: "localhost:6379"}.address())
	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.address())
}

func TestLoadBrokerConfig(t *testing.T) {
	cfg := LoadBrokerConfig(logrus.New())
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "order.created", cfg.Queue)

	t.Setenv("ORDER_EVENTS_ENABLED", "false")
	assert.False(t, LoadBrokerConfig(logrus.New()).Enabled)
}
