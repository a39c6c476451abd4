package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5050, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 500, cfg.Tutor.ChatMaxTokens)
	assert.Equal(t, 1000, cfg.Tutor.QuizMaxTokens)
	assert.Equal(t, 5, cfg.Tutor.DefaultQuizQuestions)
	assert.Equal(t, 5*time.Minute, cfg.Tutor.AutoQuizAfter)
	assert.Equal(t, 25*time.Minute, cfg.Pomodoro.StudyDuration)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "sqlite", cfg.Progress.Type)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
model:
  provider: anthropic
  retry:
    max_attempts: 4
tutor:
  auto_quiz_after: 90s
`), 0o644))
	t.Setenv("TUTOR_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, 4, cfg.Model.Retry.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Tutor.AutoQuizAfter)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: carrier-pigeon\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown model.provider")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 5050},
			Model:    ModelConfig{Provider: "mock"},
			Tutor:    TutorConfig{ChatMaxTokens: 1, QuizMaxTokens: 1, MaxQuizQuestions: 1},
			Pomodoro: PomodoroConfig{StudyDuration: time.Minute, TickInterval: time.Second},
			Storage:  StorageConfig{Type: "memory"},
			Progress: ProgressConfig{Type: "memory"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"storage", func(c *Config) { c.Storage.Type = "s3" }},
		{"progress", func(c *Config) { c.Progress.Type = "redis" }},
		{"tokens", func(c *Config) { c.Tutor.QuizMaxTokens = 0 }},
		{"questions", func(c *Config) { c.Tutor.MaxQuizQuestions = 0 }},
		{"pomodoro", func(c *Config) { c.Pomodoro.TickInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
