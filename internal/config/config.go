package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Router    RouterConfig    `yaml:"router" mapstructure:"router"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Calendar  CalendarConfig  `yaml:"calendar" mapstructure:"calendar"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Trace     TraceConfig     `yaml:"trace" mapstructure:"trace"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver           string `yaml:"driver" mapstructure:"driver"`
	Path             string `yaml:"path" mapstructure:"path"`
	DatabaseURL      string `yaml:"database_url" mapstructure:"database_url"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
}

// CorpusConfig configures document corpus loading.
type CorpusConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	MinChunkLen int    `yaml:"min_chunk_len" mapstructure:"min_chunk_len"`
}

// RetrievalConfig configures chunk retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// RouterConfig configures the learned question router. Backend is one of
// "ollama", "anthropic" or "none"; with "none" the heuristic runs alone.
type RouterConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ExemplarsPath string `yaml:"exemplars_path" mapstructure:"exemplars_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// CalendarConfig anchors corpus-relative dates. BaseYear is the calendar
// year the document corpus assumes; the year offset is computed against the
// store's earliest order at startup.
type CalendarConfig struct {
	BaseYear int `yaml:"base_year" mapstructure:"base_year"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
	DeadlineSecs int `yaml:"deadline_secs" mapstructure:"deadline_secs"`
}

// TraceConfig configures the per-question trace log.
type TraceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP answer server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "northwind.db")
	v.SetDefault("store.query_timeout_secs", 10)
	v.SetDefault("corpus.dir", "corpus")
	v.SetDefault("corpus.min_chunk_len", 40)
	v.SetDefault("retrieval.top_k", 4)
	v.SetDefault("router.backend", "ollama")
	v.SetDefault("router.base_url", "http://localhost:11434")
	v.SetDefault("router.model", "phi3.5:3.8b-mini-instruct-q4_K_M")
	v.SetDefault("router.timeout_secs", 10)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("calendar.base_year", 1996)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.deadline_secs", 0)
	v.SetDefault("trace.path", "trace.jsonl")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
