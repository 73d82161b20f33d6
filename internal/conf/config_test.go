package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("TEST_ADMIN_TOKEN", "s3cret")

	path := writeConfig(t, `
server:
  port: ":9090"
  admin_token: "${TEST_ADMIN_TOKEN}"
mongo:
  uri: "${TEST_MONGO_URI}"
  database: press
stats:
  ttl: 90s
matcher:
  cutoff_days: 3
trending:
  feeds:
    - name: HN
      url: https://news.ycombinator.com/rss
      category: technology
jobs:
  - name: content:trending_generate
    cron: "@every 1h"
    enable: true
    params:
      max_articles: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
	assert.Equal(t, "mongodb://db.internal:27017", cfg.Mongo.URI)
	assert.Equal(t, "press", cfg.Mongo.Database)
	assert.Equal(t, 90*time.Second, cfg.Stats.TTL)
	assert.Equal(t, 3, cfg.Matcher.CutoffDays)
	require.Len(t, cfg.Trending.Feeds, 1)
	assert.Equal(t, "technology", cfg.Trending.Feeds[0].Category)
	require.Len(t, cfg.Jobs, 1)
	assert.True(t, cfg.Jobs[0].Enable)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Stats.TTL)
	assert.Equal(t, 7, cfg.Matcher.CutoffDays)
	assert.Equal(t, "langchain", cfg.LLM.Provider)
	assert.Equal(t, 24*time.Hour, cfg.Trending.MaxAge)
}

func TestLoadConfig_EmptyEnvFallsBack(t *testing.T) {
	path := writeConfig(t, `
mongo:
  uri: "${NEURAPRESS_TEST_UNSET_URI}"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
