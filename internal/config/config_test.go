package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

func baseEnv() map[string]string {
	return map[string]string{
		"APP_ENV":    "test",
		"APP_PORT":   "8080",
		"DB_USER":    "planner",
		"DB_HOST":    "127.0.0.1",
		"DB_PORT":    "3306",
		"DB_NAME":    "larp",
		"JWT_SECRET": "s3cret",
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(MapEnv(baseEnv()))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.DBPass)
	assert.Equal(t, 60, cfg.AccessTTLMin)
	assert.Equal(t, DefaultRescanCron, cfg.RescanCron)
	assert.Empty(t, cfg.PolicyFile)
}

func TestLoadFromReportsEveryProblem(t *testing.T) {
	env := baseEnv()
	delete(env, "DB_HOST")
	env["JWT_SECRET"] = ""
	env["ACCESS_TOKEN_TTL_MIN"] = "soon"

	_, err := LoadFrom(MapEnv(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL_MIN")
}

func TestRateLimitClamps(t *testing.T) {
	c := LoadRateLimitConfig(MapEnv(map[string]string{
		"RATE_LIMIT_CAPACITY":        "0",
		"RATE_LIMIT_REFILL_TOKENS":   "-3",
		"RATE_LIMIT_REFILL_INTERVAL": "2s",
		"RATE_LIMIT_TTL":             "1s",
	}))
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.Equal(t, "ip_user_route", c.KeyStrategy)

	c = LoadRateLimitConfig(MapEnv(map[string]string{
		"RATE_LIMIT_BURST":        "5",
		"RATE_LIMIT_REFILL_EVERY": "30s",
	}))
	assert.Equal(t, 5, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 30*time.Second, c.RefillInterval)
}

func TestCacheMethods(t *testing.T) {
	c := LoadCacheConfig(MapEnv(map[string]string{"CACHE_METHODS": "get, head,", "CACHE_TTL": "0s"}))
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, time.Second, c.TTL)
}

func TestRedisOptions(t *testing.T) {
	o := RedisOptions(MapEnv(map[string]string{"REDIS_HOST": "cache", "REDIS_PORT": "6380", "REDIS_DB": "2"}))
	assert.Equal(t, "cache:6380", o.Addr)
	assert.Equal(t, 2, o.DB)
	assert.Nil(t, o.TLSConfig)

	o = RedisOptions(MapEnv(map[string]string{"REDIS_TLS": "1"}))
	assert.Equal(t, "localhost:6379", o.Addr)
	assert.NotNil(t, o.TLSConfig)
}

func TestQueueConfig(t *testing.T) {
	q := LoadQueueConfig(MapEnv(map[string]string{"AMQP_URL": "amqp://mq:5672/"}))
	assert.Equal(t, "amqp://mq:5672/", q.URL)
	assert.Equal(t, "planning.conflict_detected", q.ConflictQueue)
	assert.Equal(t, "planning.rescan", q.RescanQueue)

	q = LoadQueueConfig(MapEnv(map[string]string{"AMQP_URL": "amqp://a/", "RABBITMQ_URL": "amqp://b/"}))
	assert.Equal(t, "amqp://b/", q.URL)
}

func TestLoadDotEnvKeepsExistingVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PLANNER_DOTENV_A=from-file\nPLANNER_DOTENV_B=from-file\n"), 0o600))
	t.Setenv("PLANNER_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("PLANNER_DOTENV_A") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("PLANNER_DOTENV_A"))
	assert.Equal(t, "from-env", os.Getenv("PLANNER_DOTENV_B"))
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "nothing.env")))
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, scheduler.DefaultPolicy(), p)

	p, err = LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, scheduler.DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
staff_overload:
  max_concurrent: 2
  by_type:
    staff-gm: 3
timeline_overlap: false
`), 0o600))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.StaffMaxConcurrent)
	assert.Equal(t, 3, p.StaffMaxConcurrentByType[model.ResourceType("staff-gm")])
	assert.True(t, p.CountBookedResources)
	assert.False(t, p.TimelineOverlap)
}

func TestParsePolicyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "staff_overlord: {}\n",
		"zero threshold":    "staff_overload:\n  max_concurrent: 0\n",
		"non-staff type":    "staff_overload:\n  by_type:\n    prop: 2\n",
		"unparseable":       "staff_overload: [\n",
		"unknown type name": "staff_overload:\n  by_type:\n    dragon: 2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			assert.Error(t, err)
		})
	}

	p, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, scheduler.DefaultPolicy(), p)
}
