package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"odds_grid/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	FeedSourceSimulator = "simulator"
	FeedSourceWebSocket = "websocket"
	FeedSourceKafka     = "kafka"

	KVBackendSQLite = "sqlite"
	KVBackendRedis  = "redis"
	KVBackendMemory = "memory"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 배포별 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Grid struct {
		RowHeight      int `yaml:"row_height"`
		Overscan       int `yaml:"overscan"`
		ViewportHeight int `yaml:"viewport_height"`
		InboxSize      int `yaml:"inbox_size"`
	} `yaml:"grid"`

	Dataset struct {
		Matches int    `yaml:"matches"`
		DBPath  string `yaml:"db_path"`
	} `yaml:"dataset"`

	Feed struct {
		Source     string `yaml:"source"`
		IntervalMS int    `yaml:"interval_ms"`
		WSURL      string `yaml:"ws_url"`
		Kafka      struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
			GroupID string   `yaml:"group_id"`
		} `yaml:"kafka"`
	} `yaml:"feed"`

	KV struct {
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr      string `yaml:"addr"`
			Password  string `yaml:"password"`
			DB        int    `yaml:"db"`
			KeyPrefix string `yaml:"key_prefix"`
		} `yaml:"redis"`
	} `yaml:"kv"`

	Simulator struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"simulator"`

	Metrics struct {
		Port string `yaml:"port"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Dir    string `yaml:"dir"`
		Stdout bool   `yaml:"stdout"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// 파일이 없으면 domain.ErrConfigNotFound 를 감싼 에러를 반환합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigOrDefault falls back to defaults (still env-overridden) when the file is missing.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, domain.ErrConfigNotFound) {
		cfg = &Config{}
		if err := cfg.finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) finalize() error {
	applyDefaults(c)

	// 환경 변수 오버라이드 지원
	overrideWithEnv(c)

	// 설정 유효성 검사
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.App.Name == "" {
		c.App.Name = "odds-grid"
	}
	if c.Grid.RowHeight == 0 {
		c.Grid.RowHeight = 30
	}
	if c.Grid.Overscan == 0 {
		c.Grid.Overscan = 3
	}
	if c.Grid.ViewportHeight == 0 {
		c.Grid.ViewportHeight = 600
	}
	if c.Grid.InboxSize == 0 {
		c.Grid.InboxSize = 256
	}
	if c.Dataset.Matches == 0 {
		c.Dataset.Matches = 11_000
	}
	if c.Feed.Source == "" {
		c.Feed.Source = FeedSourceSimulator
	}
	if c.Feed.IntervalMS == 0 {
		c.Feed.IntervalMS = 1000
	}
	if c.Feed.Kafka.Topic == "" {
		c.Feed.Kafka.Topic = "odds_changes"
	}
	if c.Feed.Kafka.GroupID == "" {
		c.Feed.Kafka.GroupID = "odds-grid"
	}
	if c.KV.Backend == "" {
		c.KV.Backend = KVBackendSQLite
	}
	if c.KV.Redis.KeyPrefix == "" {
		c.KV.Redis.KeyPrefix = "oddsgrid:"
	}
	if c.Simulator.ListenAddr == "" {
		c.Simulator.ListenAddr = ":8090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Grid.RowHeight <= 0 {
		return &domain.ConfigError{Field: "grid.row_height", Err: errors.New("must be positive")}
	}
	if c.Grid.Overscan < 0 {
		return &domain.ConfigError{Field: "grid.overscan", Err: errors.New("must not be negative")}
	}
	if c.Grid.InboxSize <= 0 {
		return &domain.ConfigError{Field: "grid.inbox_size", Err: errors.New("must be positive")}
	}
	if c.Dataset.Matches < 0 {
		return &domain.ConfigError{Field: "dataset.matches", Err: errors.New("must not be negative")}
	}
	if c.Feed.IntervalMS <= 0 {
		return &domain.ConfigError{Field: "feed.interval_ms", Err: errors.New("must be positive")}
	}

	switch c.Feed.Source {
	case FeedSourceSimulator:
	case FeedSourceWebSocket:
		if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
			return &domain.ConfigError{Field: "feed.ws_url", Err: fmt.Errorf("invalid WS URL: %q", c.Feed.WSURL)}
		}
	case FeedSourceKafka:
		if len(c.Feed.Kafka.Brokers) == 0 {
			return &domain.ConfigError{Field: "feed.kafka.brokers", Err: errors.New("at least one broker is required")}
		}
	default:
		return &domain.ConfigError{Field: "feed.source", Err: fmt.Errorf("unknown source %q", c.Feed.Source)}
	}

	switch c.KV.Backend {
	case KVBackendSQLite, KVBackendMemory:
	case KVBackendRedis:
		if c.KV.Redis.Addr == "" {
			return &domain.ConfigError{Field: "kv.redis.addr", Err: errors.New("required for redis backend")}
		}
	default:
		return &domain.ConfigError{Field: "kv.backend", Err: fmt.Errorf("unknown backend %q", c.KV.Backend)}
	}

	return nil
}

// FeedIntervalDuration returns the feed cadence.
func (c *Config) FeedIntervalDuration() time.Duration {
	return time.Duration(c.Feed.IntervalMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("ODDSGRID_DB_PATH"); path != "" {
		cfg.Dataset.DBPath = path
	}
	if addr := os.Getenv("ODDSGRID_REDIS_ADDR"); addr != "" {
		cfg.KV.Redis.Addr = addr
		cfg.KV.Backend = KVBackendRedis
	}
	if brokers := os.Getenv("ODDSGRID_KAFKA_BROKERS"); brokers != "" {
		cfg.Feed.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if url := os.Getenv("ODDSGRID_FEED_URL"); url != "" {
		cfg.Feed.WSURL = url
		cfg.Feed.Source = FeedSourceWebSocket
	}
}
