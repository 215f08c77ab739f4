package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Env looks up one variable.  OSEnv reads the process environment; tests
// pass a map-backed function.
type Env func(key string) (string, bool)

// OSEnv is the process environment.
var OSEnv Env = os.LookupEnv

// MapEnv serves variables from m.
func MapEnv(m map[string]string) Env {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// LoadDotEnv loads the given .env files (".env" when none are given) into
// the process environment without overriding variables that are already
// set.  Missing files are ignored so production can rely on real env vars.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func (e Env) str(k, d string) string {
	if v, ok := e(k); ok && v != "" {
		return v
	}
	return d
}

func (e Env) boolean(k string, d bool) bool {
	v, _ := e(k)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func (e Env) integer(k string, d int) int {
	if v, ok := e(k); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func (e Env) duration(k string, d time.Duration) time.Duration {
	if v, ok := e(k); ok && v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
