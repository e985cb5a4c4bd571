package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// MethodList lists the HTTP methods to cache separated by "|" (e.g. GET|HEAD).
// TTL defines the lifetime of cache entries.  KeyStrategy determines which
// parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED,default=true"`
	MethodList   string        `env:"CACHE_METHODS,default=GET"`
	TTL          time.Duration `env:"CACHE_TTL,default=30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY,default=route_query"`
	Prefix       string        `env:"CACHE_PREFIX,default=cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES,default=1048576"`

	Methods map[string]bool
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  All
// methods are upper-cased.  A malformed value disables the cache rather than
// aborting startup.
func LoadCacheConfig(log logrus.FieldLogger) CacheConfig {
	var cfg CacheConfig
	if err := decode(&cfg); err != nil {
		log.WithError(err).Warn("cache config invalid; caching disabled")
		return CacheConfig{}
	}
	cfg.Methods = parseMethods(cfg.MethodList)
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
