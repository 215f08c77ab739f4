package config

// Redis backs distributed rate limiting and response caching.  When the
// server cannot be reached at startup NewRedisClient returns nil and
// callers degrade gracefully by disabling both.

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment.
// Supported variables are:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand, used when host/port are not both set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions(env Env) *redis.Options {
	host := env.str("REDIS_HOST", "")
	port := env.str("REDIS_PORT", "")
	addr := env.str("REDIS_ADDR", "localhost:6379")
	if host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: env.str("REDIS_PASSWORD", ""),
		DB:       env.integer("REDIS_DB", 0),
	}
	if v := env.str("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opts
}

// NewRedisClient connects with RedisOptions(env) and pings the server.
// It returns nil when the ping fails.
func NewRedisClient(env Env) *redis.Client {
	client := redis.NewClient(RedisOptions(env))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
