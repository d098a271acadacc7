package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is scoped to a single run and handed to constructors explicitly.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Smartcn   SmartcnConfig   `yaml:"smartcn"`
	Mineru    MineruConfig    `yaml:"mineru"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Redis     RedisConfig     `yaml:"redis"`
	Eval      EvalConfig      `yaml:"eval"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type PathsConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`
}

type SmartcnConfig struct {
	AuthToken       string        `yaml:"auth_token"`
	Hosts           []string      `yaml:"hosts"`
	RequestDelay    time.Duration `yaml:"request_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	LessonPlanLimit int           `yaml:"lesson_plan_limit"`
	PerTextbookMin  int           `yaml:"per_textbook_min"`
	TextbooksPerRun int           `yaml:"textbooks_per_run"`
	Subjects        []string      `yaml:"subjects"`
}

type MineruConfig struct {
	Binary  string        `yaml:"binary"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Attempts    int           `yaml:"attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	Concurrency int           `yaml:"concurrency"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Dimension int32  `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

type QdrantConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UseTLS   bool   `yaml:"use_tls"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Enabled  bool   `yaml:"enabled"`
}

type EvalConfig struct {
	TopK      int  `yaml:"top_k"`
	BatchSize int  `yaml:"batch_size"`
	PageLevel bool `yaml:"page_level"`
}

type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	AuthToken    string `yaml:"auth_token"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
	// RateLimit is POST /jobs requests per second per client IP.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
			DBPath:    filepath.Join(DefaultOutputDir, DefaultDBFile),
		},
		Smartcn: SmartcnConfig{
			Hosts:           []string{SmartcnPrimaryHost, SmartcnFallbackHost},
			RequestDelay:    SmartcnRequestDelay,
			RequestTimeout:  SmartcnRequestTimeout,
			LessonPlanLimit: SmartcnLessonPlanLimit,
			PerTextbookMin:  SmartcnPerTextbookMin,
			TextbooksPerRun: SmartcnTextbooksPerRun,
			Subjects:        Subjects,
		},
		Mineru: MineruConfig{
			Binary:  MineruBinary,
			Timeout: MineruTimeout,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       OpenAIModelName,
			Attempts:    LLMMaxAttempts,
			Backoff:     LLMRetryBackoff,
			RatePerSec:  LLMRequestsPerSec,
			Concurrency: QueryGenWorkers,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     OpenAIEmbeddingModel,
			Dimension: EmbeddingOutputDimensionality,
			BatchSize: EmbeddingBatchSize,
		},
		Qdrant: QdrantConfig{
			Host:     QdrantHost,
			Port:     QdrantGrpcPort,
			UseTLS:   QdrantUseTLS,
			PoolSize: QdrantPoolSize,
		},
		Redis: RedisConfig{Addr: RedisAddr},
		Eval: EvalConfig{
			TopK:      EvalTopK,
			BatchSize: EvalBatchSize,
		},
		Server: ServerConfig{
			ListenAddr: ServerListenAddr,
			RateLimit:  RATE_LIMIT_PER_SECOND,
			RateBurst:  BURST_RATE_LIMIT_PER_SECOND,
		},
		Log:    LogConfig{Level: "info"},
	}
}

// Load merges the given YAML files over the defaults, later files winning,
// then applies IRBENCH_* environment overrides.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load(".env")

	merged := map[string]any{}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
		var layer map[string]any
		if err := yaml.Unmarshal(raw, &layer); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", p, err)
		}
		merged = mergeMaps(merged, layer)
	}

	cfg := Default()
	if len(merged) > 0 {
		// re-encode so typed decoding (durations, nested structs) applies once
		out, err := yaml.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("encode merged config: %w", err)
		}
		if err := yaml.Unmarshal(out, cfg); err != nil {
			return nil, fmt.Errorf("decode merged config: %w", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func mergeMaps(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if bv, ok := out[k].(map[string]any); ok {
			if ov, ok := v.(map[string]any); ok {
				out[k] = mergeMaps(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func applyEnv(cfg *Config) {
	setString(&cfg.Paths.OutputDir, "IRBENCH_OUTPUT_DIR")
	setString(&cfg.Paths.InputDir, "IRBENCH_INPUT_DIR")
	setString(&cfg.Paths.DBPath, "IRBENCH_DB_PATH")
	setString(&cfg.Smartcn.AuthToken, "IRBENCH_SMARTCN_AUTH")
	setString(&cfg.LLM.APIKey, "IRBENCH_LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "IRBENCH_LLM_BASE_URL")
	setString(&cfg.LLM.Model, "IRBENCH_LLM_MODEL")
	setString(&cfg.Embedding.APIKey, "IRBENCH_EMBEDDING_API_KEY")
	setString(&cfg.Embedding.BaseURL, "IRBENCH_EMBEDDING_BASE_URL")
	setString(&cfg.Qdrant.Host, "QDRANT_HOST")
	setInt(&cfg.Qdrant.Port, "QDRANT_PORT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Server.AuthToken, "IRBENCH_AUTH_TOKEN")
	setString(&cfg.Log.Level, "IRBENCH_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
