package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Model    ModelConfig    `mapstructure:"model"`
	Tutor    TutorConfig    `mapstructure:"tutor"`
	Pomodoro PomodoroConfig `mapstructure:"pomodoro"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Progress ProgressConfig `mapstructure:"progress"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`

	// StreamTimeout bounds one streamed reply; Heartbeat is the SSE keepalive period.
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
}

// ModelConfig selects the chat-completion provider. The API key is not part
// of it: clients hand their own credential in when a session is created.
type ModelConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Temperature  float32       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
	Retry        RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

type TutorConfig struct {
	ChatMaxTokens        int           `mapstructure:"chat_max_tokens"`
	QuizMaxTokens        int           `mapstructure:"quiz_max_tokens"`
	SummaryMaxTokens     int           `mapstructure:"summary_max_tokens"`
	DefaultQuizQuestions int           `mapstructure:"default_quiz_questions"`
	MaxQuizQuestions     int           `mapstructure:"max_quiz_questions"`
	AutoQuizAfter        time.Duration `mapstructure:"auto_quiz_after"`
	AutoQuizQuestions    int           `mapstructure:"auto_quiz_questions"`
	AutoQuizTimeout      time.Duration `mapstructure:"auto_quiz_timeout"`
}

type PomodoroConfig struct {
	StudyDuration time.Duration `mapstructure:"study_duration"`
	BreakDuration time.Duration `mapstructure:"break_duration"`
	AutoBreak     bool          `mapstructure:"auto_break"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

type ProgressConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

var (
	mu sync.RWMutex
	v  *viper.Viper
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5050)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Minute)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.stream_timeout", 25*time.Minute)
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("model.provider", "openai")
	v.SetDefault("model.model", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("model.debug_request", false)
	v.SetDefault("model.retry.max_attempts", 1)
	v.SetDefault("model.retry.initial_wait", time.Second)
	v.SetDefault("model.retry.max_wait", 10*time.Second)
	v.SetDefault("model.retry.multiplier", 2.0)

	v.SetDefault("tutor.chat_max_tokens", 500)
	v.SetDefault("tutor.quiz_max_tokens", 1000)
	v.SetDefault("tutor.summary_max_tokens", 500)
	v.SetDefault("tutor.default_quiz_questions", 5)
	v.SetDefault("tutor.max_quiz_questions", 20)
	v.SetDefault("tutor.auto_quiz_after", 5*time.Minute)
	v.SetDefault("tutor.auto_quiz_questions", 5)
	v.SetDefault("tutor.auto_quiz_timeout", 2*time.Minute)

	v.SetDefault("pomodoro.study_duration", 25*time.Minute)
	v.SetDefault("pomodoro.break_duration", 5*time.Minute)
	v.SetDefault("pomodoro.auto_break", false)
	v.SetDefault("pomodoro.tick_interval", time.Second)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.exposed_headers", []string{"Content-Length"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 100)

	v.SetDefault("progress.type", "sqlite")
	v.SetDefault("progress.path", "./data/progress.db")
}

// Load reads .env (if present), the YAML file at configPath (if present) and
// TUTOR_* environment overrides, in increasing priority.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	nv := viper.New()
	setDefaults(nv)

	nv.SetEnvPrefix("TUTOR")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if configPath != "" {
		nv.SetConfigFile(configPath)
		nv.SetConfigType("yaml")
		if err := nv.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	loaded := &Config{}
	if err := nv.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mu.Lock()
	v = nv
	mu.Unlock()

	return loaded, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Model.Provider {
	case "openai", "ark", "qwen", "anthropic", "gemini", "mock":
	default:
		return fmt.Errorf("unknown model.provider: %q", c.Model.Provider)
	}
	switch c.Storage.Type {
	case "memory", "disk":
	default:
		return fmt.Errorf("unknown storage.type: %q", c.Storage.Type)
	}
	switch c.Progress.Type {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown progress.type: %q", c.Progress.Type)
	}
	if c.Tutor.ChatMaxTokens <= 0 || c.Tutor.QuizMaxTokens <= 0 {
		return fmt.Errorf("token budgets must be positive")
	}
	if c.Tutor.MaxQuizQuestions < 1 {
		return fmt.Errorf("tutor.max_quiz_questions must be >= 1")
	}
	if c.Pomodoro.StudyDuration <= 0 || c.Pomodoro.TickInterval <= 0 {
		return fmt.Errorf("pomodoro durations must be positive")
	}
	return nil
}

// Watch re-reads the config file whenever it changes on disk and hands the
// new configuration to onChange. Invalid edits are reported and ignored.
func Watch(onChange func(*Config), onError func(error)) {
	mu.RLock()
	nv := v
	mu.RUnlock()
	if nv == nil || nv.ConfigFileUsed() == "" {
		return
	}

	nv.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		reloaded := &Config{}
		if err := nv.Unmarshal(reloaded); err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		if err := reloaded.Validate(); err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(reloaded)
	})
	nv.WatchConfig()
}
