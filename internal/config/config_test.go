package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
llm:
  api_key: "file_api_key"
  api_url: "https://example.com/v1/chat/completions"
  model: "gpt-4o"
  task_models:
    resume_parse: "gpt-4o-mini"

matcher:
  temperature: 0.3
  maxTokens: 2048
  score_cutoff: 60
  batch_size: 25
  batch_concurrency: 2
  allow_legacy_text: true
  matchTimeout: "90s"
  cache_ttl_minutes: 30
  cache_enabled: true

server:
  address: ":9090"
  api_keys:
    - "secret-key-1"

mysql:
  host: "db.internal"
  port: 3307
  database: "talent_match"

model_qpm_limits:
  gpt-4o: 120
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "file_api_key", cfg.LLM.APIKey)
	assert.Equal(t, "https://example.com/v1/chat/completions", cfg.LLM.APIURL)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)

	assert.Equal(t, 0.3, cfg.Matcher.Temperature)
	assert.Equal(t, 60, cfg.Matcher.ScoreCutoff)
	assert.Equal(t, 25, cfg.Matcher.BatchSize)
	assert.Equal(t, 2, cfg.Matcher.BatchConcurrency)
	assert.True(t, cfg.Matcher.AllowLegacyText)
	assert.Equal(t, 30, cfg.Matcher.CacheTTLMinutes)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"secret-key-1"}, cfg.Server.APIKeys)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.Equal(t, 120, cfg.ModelQPMLimits["gpt-4o"])
}

func TestLoadConfigEnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
llm:
  api_key: "file_api_key"
  model: "gpt-4o"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	t.Setenv("LLM_API_KEY", "env_api_key")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env_api_key", cfg.LLM.APIKey, "环境变量应覆盖文件配置")
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadConfigDefaultsInTestEnv(t *testing.T) {
	// 测试环境下找不到配置文件时返回默认配置而不是报错
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no_such_config.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 70, cfg.Matcher.ScoreCutoff)
	assert.Equal(t, 50, cfg.Matcher.BatchSize)
	assert.Equal(t, 3, cfg.Matcher.BatchConcurrency)
	assert.False(t, cfg.Matcher.AllowLegacyText)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.NotEmpty(t, cfg.RabbitMQ.MatchQueue)
}

func TestApplyDefaultsClampsCutoff(t *testing.T) {
	cfg := &Config{}
	cfg.Matcher.ScoreCutoff = 150
	applyDefaults(cfg)
	assert.Equal(t, 70, cfg.Matcher.ScoreCutoff)

	cfg.Matcher.ScoreCutoff = -5
	applyDefaults(cfg)
	assert.Equal(t, 70, cfg.Matcher.ScoreCutoff)
}

func TestGetModelForTask(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.LLM.Model = "default-model"
	cfg.LLM.TaskModels = map[string]string{
		"resume_parse": "parse-model",
	}

	assert.Equal(t, "parse-model", cfg.GetModelForTask("resume_parse"))
	assert.Equal(t, "default-model", cfg.GetModelForTask("candidate_match"))
	assert.Equal(t, "default-model", cfg.GetModelForTask("unknown_task"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 60*time.Second, GetDuration("60s", time.Second))
	assert.Equal(t, 5*time.Second, GetDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, GetDuration("not-a-duration", 5*time.Second))
}
