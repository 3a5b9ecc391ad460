package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, CacheDisk, cfg.Cache.Backend)
	assert.Equal(t, SinkCSV, cfg.Sink.Kind)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
cache:
  backend: memory
log:
  level: debug
  format: console
server:
  addr: 127.0.0.1:6000
  wal_path: /tmp/ledger.wal
sink:
  kind: kafka
  kafka:
    brokers: [k1:9092, k2:9092]
    topic: ledger.accounts
mysql:
  host: db
  conn_max_lifetime: 5m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:6000", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Sink.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.MySQL.ConnMaxLifetime)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "cache:\n  backend: memory\nsink:\n  kind: csv\n")
	t.Setenv("LEDGER_CACHE_BACKEND", "disk")
	t.Setenv("LEDGER_CACHE_DIR", "/var/lib/ledger")
	t.Setenv("LEDGER_KAFKA_BROKERS", "a:1,b:2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CacheDisk, cfg.Cache.Backend)
	assert.Equal(t, "/var/lib/ledger", cfg.Cache.Dir)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Sink.Kafka.Brokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Cache.Backend = "redis"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCacheBackend)

	cfg = base()
	cfg.Sink.Kind = "stdout"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSink)

	cfg = base()
	cfg.Sink.Kind = SinkKafka
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSink)

	cfg = base()
	cfg.Sink.Kind = SinkMySQL
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSink)

	// 快取檔案每次執行都是新的，WAL 可以和 cache.dir 同時使用
	cfg = base()
	cfg.Server.WALPath = "ledger.wal"
	cfg.Cache.Dir = "/data"
	assert.NoError(t, cfg.Validate())

	// 大小寫與空白會被正規化
	cfg = base()
	cfg.Cache.Backend = " Memory "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}
