package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Methods lists the HTTP methods to cache.  KeyStrategy is "route" or
// "route_query".  Entries are namespaced per LARP so a planning write can
// drop every cached read of that LARP at once.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig(env Env) CacheConfig {
	c := CacheConfig{
		Enabled:      env.boolean("CACHE_ENABLED", true),
		Methods:      parseMethods(env.str("CACHE_METHODS", "GET")),
		TTL:          env.duration("CACHE_TTL", 30*time.Second),
		KeyStrategy:  env.str("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       env.str("CACHE_PREFIX", "cache"),
		MaxBodyBytes: env.integer("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
	return c
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
