package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED,default=true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY,default=60"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS,default=1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL,default=10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY,default=ip_user_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX,default=rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG,default=false"`
}

func LoadRateLimitConfig(log logrus.FieldLogger) RateLimitConfig {
	var cfg RateLimitConfig
	if err := decode(&cfg); err != nil {
		log.WithError(err).Warn("rate limit config invalid; using defaults")
		cfg = RateLimitConfig{Enabled: true, Capacity: 60, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute, KeyStrategy: "ip_user_route", Prefix: "rl"}
	}
	return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
