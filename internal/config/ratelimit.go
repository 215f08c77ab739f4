package config

import "time"

// RateLimitConfig drives the redis token-bucket middleware.  KeyStrategy
// selects what a bucket is keyed on: "ip", "user", "ip_user", "route" or
// the default "ip_user_route".
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to
// usable values.  RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are
// shorthands for capacity and a one-token refill period.
func LoadRateLimitConfig(env Env) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        env.boolean("RATE_LIMIT_ENABLED", true),
		Capacity:       env.integer("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   env.integer("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: env.duration("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            env.duration("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    env.str("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         env.str("RATE_LIMIT_PREFIX", "rl"),
		Debug:          env.boolean("RATE_LIMIT_DEBUG", false),
	}
	if b := env.integer("RATE_LIMIT_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := env.duration("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// A bucket must outlive a few refill periods or it resets too eagerly.
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
