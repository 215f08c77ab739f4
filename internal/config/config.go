// Package config loads application configuration from environment variables
// (optionally seeded from a .env file) and the scheduling policy from YAML.
package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Config holds the runtime configuration shared by the server, the worker
// and larpctl.
//
// Fields:
//  Env          – application environment (dev, test, prod).
//  Port         – HTTP port to listen on.
//  DBUser       – database username.
//  DBPass       – database password (optional).
//  DBHost       – database host address.
//  DBPort       – database port number.
//  DBName       – database name.
//  JWTSecret    – secret used to verify (and, in larpctl, sign) JWTs.
//  AccessTTLMin – lifetime of tokens minted by larpctl, in minutes.
//  RescanCron   – cron spec for the nightly conflict re-scan.
//  PolicyFile   – optional YAML file overriding the detection policy.
type Config struct {
	Env          string
	Port         string
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	JWTSecret    string
	AccessTTLMin int
	RescanCron   string
	PolicyFile   string
}

// DefaultRescanCron runs the re-scan at 04:00 every day.
const DefaultRescanCron = "0 4 * * *"

// Load reads the configuration from the process environment.  Missing
// required variables are fatal.
func Load() Config {
	cfg, err := LoadFrom(OSEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// LoadFrom reads the configuration through env and reports every missing
// or malformed required variable at once.
func LoadFrom(env Env) (Config, error) {
	r := reader{env: env}
	cfg := Config{
		Env:          r.must("APP_ENV"),
		Port:         r.must("APP_PORT"),
		DBUser:       r.must("DB_USER"),
		DBPass:       env.str("DB_PASS", ""),
		DBHost:       r.must("DB_HOST"),
		DBPort:       r.must("DB_PORT"),
		DBName:       r.must("DB_NAME"),
		JWTSecret:    r.must("JWT_SECRET"),
		AccessTTLMin: r.intOr("ACCESS_TOKEN_TTL_MIN", 60),
		RescanCron:   env.str("RESCAN_CRON", DefaultRescanCron),
		PolicyFile:   env.str("PLANNER_POLICY_FILE", ""),
	}
	if len(r.problems) > 0 {
		return Config{}, fmt.Errorf("%s", strings.Join(r.problems, "; "))
	}
	return cfg, nil
}

// reader collects problems instead of stopping at the first one.
type reader struct {
	env      Env
	problems []string
}

// must retrieves a required variable; unset and empty are both missing.
func (r *reader) must(key string) string {
	v, ok := r.env(key)
	if !ok || v == "" {
		r.problems = append(r.problems, "missing required env var: "+key)
	}
	return v
}

// intOr is like must() for an optional integer with a default.
func (r *reader) intOr(key string, d int) int {
	s, ok := r.env(key)
	if !ok || s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		r.problems = append(r.problems, fmt.Sprintf("invalid int for %s: %q", key, s))
		return d
	}
	return n
}
