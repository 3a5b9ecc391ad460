package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/kafka"
	"github.com/JoeShih716/go-replay-ledger/pkg/logger"
	"github.com/JoeShih716/go-replay-ledger/pkg/mysql"
)

// 快取後端
const (
	CacheMemory = "memory"
	CacheDisk   = "disk"
)

// 報表輸出
const (
	SinkCSV   = "csv"
	SinkKafka = "kafka"
	SinkMySQL = "mysql"
)

const DefaultServerAddr = ":50051"

type Config struct {
	Cache  CacheConfig   `yaml:"cache"`
	Log    logger.Config `yaml:"log"`
	Server ServerConfig  `yaml:"server"`
	Sink   SinkConfig    `yaml:"sink"`
	MySQL  mysql.Config  `yaml:"mysql"`
}

// CacheConfig 交易快取
//
// Dir 為空時 disk 後端使用暫存目錄，程式結束即刪除；
// 有設定時每次執行在該目錄建立新的 tx-cache-<run_id>.db 並保留
type CacheConfig struct {
	Backend string `yaml:"backend" env:"LEDGER_CACHE_BACKEND"`
	Dir     string `yaml:"dir" env:"LEDGER_CACHE_DIR"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" env:"LEDGER_SERVER_ADDR"`
	WALPath string `yaml:"wal_path" env:"LEDGER_WAL_PATH"`
}

type SinkConfig struct {
	Kind  string       `yaml:"kind" env:"LEDGER_SINK"`
	Kafka kafka.Config `yaml:"kafka"`
}

var (
	ErrInvalidCacheBackend = errors.New("invalid cache backend")
	ErrInvalidSink         = errors.New("invalid sink kind")
)

// Load 讀取設定
//
// 順序: YAML 檔 (path 為空則略過) -> 環境變數 -> 預設值。
// CLI 旗標由呼叫端在之後覆寫，最後再呼叫 Validate
//
// 參數:
//
//	path: string - YAML 檔路徑
//
// 回傳:
//
//	Config: 合併後的設定
//	error: 讀檔或解析失敗
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// 補全預設配置 (如果 yaml 與環境變數都沒寫)
func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheDisk
	}
	if c.Sink.Kind == "" {
		c.Sink.Kind = SinkCSV
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	c.MySQL = c.MySQL.WithDefaults()
}

// Validate 檢查設定組合是否合法
func (c *Config) Validate() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))

	switch c.Cache.Backend {
	case CacheMemory, CacheDisk:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, c.Cache.Backend)
	}

	switch c.Sink.Kind {
	case SinkCSV:
	case SinkKafka:
		if len(c.Sink.Kafka.Brokers) == 0 || c.Sink.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka needs brokers and topic", ErrInvalidSink)
		}
	case SinkMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return fmt.Errorf("%w: mysql needs host and db_name", ErrInvalidSink)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSink, c.Sink.Kind)
	}
	return nil
}
