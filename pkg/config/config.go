package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xaenox/lisa-bot/internal/storage"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Uploads   DirConfig       `mapstructure:"uploads"`
	Downloads DirConfig       `mapstructure:"downloads"`
	Session   SessionConfig   `mapstructure:"session"`
	Finetune  FinetuneConfig  `mapstructure:"finetune"`
	Rating    RatingConfig    `mapstructure:"rating"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // memory, postgres or sqlite
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type GeneratorConfig struct {
	Provider    string        `mapstructure:"provider"` // openai or ollama
	OllamaHost  string        `mapstructure:"ollama_host"`
	OllamaModel string        `mapstructure:"ollama_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ExecutorConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxOutput int           `mapstructure:"max_output"`
}

type DirConfig struct {
	Dir string `mapstructure:"dir"`
}

type SessionConfig struct {
	Backend    string        `mapstructure:"backend"` // memory or redis
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type FinetuneConfig struct {
	Epochs       int           `mapstructure:"epochs"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	ArtifactPath string        `mapstructure:"artifact_path"`
	BaseModel    string        `mapstructure:"base_model"`
	Suffix       string        `mapstructure:"suffix"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RatingConfig struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.path", "lisa.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 512)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("generator.provider", "openai")
	v.SetDefault("generator.ollama_host", "http://localhost:11434")
	v.SetDefault("generator.ollama_model", "codellama")
	v.SetDefault("generator.timeout", time.Minute)
	v.SetDefault("executor.enabled", false)
	v.SetDefault("executor.timeout", 10*time.Second)
	v.SetDefault("executor.max_output", 4096)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("downloads.dir", "downloads")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.max_entries", 50)
	v.SetDefault("finetune.epochs", 3)
	v.SetDefault("finetune.batch_size", 4)
	v.SetDefault("finetune.max_tokens", 512)
	v.SetDefault("finetune.artifact_path", "fine_tuned_model/artifact.json")
	v.SetDefault("finetune.base_model", "gpt-4o-mini-2024-07-18")
	v.SetDefault("finetune.suffix", "lisa")
	v.SetDefault("finetune.poll_interval", 30*time.Second)
	v.SetDefault("rating.min", 1)
	v.SetDefault("rating.max", 5)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads the YAML file at path. An empty path uses defaults and
// the environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.MaxConns = config.Database.MaxConns
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Session.RedisURL = redisURL
		config.Session.Backend = "redis"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Generator.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("session backend redis needs session.redis_url")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Rating.Min > c.Rating.Max {
		return fmt.Errorf("rating.min %d exceeds rating.max %d", c.Rating.Min, c.Rating.Max)
	}
	return nil
}

// StorageConfig converts the database section for storage.Open.
func (c DatabaseConfig) StorageConfig() storage.DatabaseConfig {
	return storage.DatabaseConfig{
		Driver:   c.Driver,
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
	}
}
