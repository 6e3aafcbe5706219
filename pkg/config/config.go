package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	xhttp "Aegis/pkg/http"
	"Aegis/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Server      ServerConfig  `yaml:"server"`
	Log         logger.Config `yaml:"log"`
	Metrics     struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Market     MarketConfig     `yaml:"market"`
	Cache      CacheConfig      `yaml:"cache"`
	Engine     EngineConfig     `yaml:"engine"`
	Judge      JudgeConfig      `yaml:"judge"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Port            int           `yaml:"port" default:"8000" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MarketConfig struct {
	Symbol      string        `yaml:"symbol" default:"BTC/USDT" validate:"required"`
	Timeframe   string        `yaml:"timeframe" default:"15m" validate:"oneof=1m 3m 5m 15m 1h"`
	CandleLimit int           `yaml:"candle_limit" default:"50" validate:"gte=50,lte=1000"`
	BaseURL     string        `yaml:"base_url" default:"https://api.binance.com" validate:"url"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
	RateBurst   float64       `yaml:"rate_burst" default:"10" validate:"gt=0"`
	RatePerSec  float64       `yaml:"rate_per_sec" default:"10" validate:"gt=0"`
	// hour offset from UTC used to bucket the volatility profile
	LocalUTCOffset int `yaml:"local_utc_offset" default:"7" validate:"gte=-12,lte=14"`
}

type CacheConfig struct {
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl" default:"10s"`
	IndicatorTTL  time.Duration `yaml:"indicator_ttl" default:"10s"`
	VolatilityTTL time.Duration `yaml:"volatility_ttl" default:"1h"`
	Redis         struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

type EngineConfig struct {
	Paths int `yaml:"paths" default:"1000" validate:"gte=500,lte=100000"`
	Steps int `yaml:"steps" default:"60" validate:"gte=1,lte=10000"`
	// zero means a fresh random seed per run
	Seed uint64 `yaml:"seed"`
}

type JudgeConfig struct {
	Provider  string        `yaml:"provider" default:"openai" validate:"oneof=openai http"`
	BaseURL   string        `yaml:"base_url" default:"https://api.openai.com/v1" validate:"url"`
	Model     string        `yaml:"model" default:"gpt-4o-mini" validate:"required"`
	APIKey    string        `yaml:"api_key"`
	MaxTokens int           `yaml:"max_tokens" default:"512"`
	Attempts  int           `yaml:"attempts" default:"3" validate:"gte=1,lte=10"`
	BaseDelay time.Duration `yaml:"base_delay" default:"3s"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
}

type PipelineConfig struct {
	CycleDelay    time.Duration `yaml:"cycle_delay" default:"60s"`
	RecoveryDelay time.Duration `yaml:"recovery_delay" default:"10s"`
	MinWinRate    float64       `yaml:"min_win_rate" default:"60" validate:"gte=0,lte=100"`
	MinScore      int           `yaml:"min_score" default:"8" validate:"gte=0,lte=15"`
	TPMultiple    float64       `yaml:"tp_multiple" default:"2.0" validate:"gt=0"`
	SLMultiple    float64       `yaml:"sl_multiple" default:"1.5" validate:"gt=0"`
}

type LedgerConfig struct {
	Path     string  `yaml:"path" default:"logs/paper_trades.csv" validate:"required"`
	Balance  float64 `yaml:"balance" default:"1000" validate:"gt=0"`
	Fraction float64 `yaml:"fraction" default:"0.05" validate:"gt=0,lte=1"`
}

type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"aegis"`
	Table        string        `yaml:"table" default:"paper_trades"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert"`
	WaitForAsync bool          `yaml:"wait_for_async_insert"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic        string   `yaml:"topic" default:"aegis.decisions"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Async        bool     `yaml:"async"`
}

// Load applies defaults, overlays the YAML file and validates the result.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present) and the YAML file, then lets
// environment variables override secrets and deployment-specific values.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JUDGE_API_KEY"); v != "" {
		c.Judge.APIKey = v
	}
	if v := os.Getenv("JUDGE_BASE_URL"); v != "" {
		c.Judge.BaseURL = v
	}
	if v := os.Getenv("JUDGE_MODEL"); v != "" {
		c.Judge.Model = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Market.Symbol = v
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		c.Market.Timeframe = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

// Validate checks every validate tag.
func (c *Config) Validate() error {
	if err := xhttp.Validator().Struct(c); err != nil {
		return xhttp.FieldErrors(err)
	}
	return nil
}
