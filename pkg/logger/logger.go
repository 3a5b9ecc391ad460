package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日誌設定
type Config struct {
	Level  string `yaml:"level" env:"LEDGER_LOG_LEVEL"`   // debug / info / warn / error
	Format string `yaml:"format" env:"LEDGER_LOG_FORMAT"` // json / console
}

// New 建立寫到 stderr 的 zap logger
//
// stdout 保留給報表輸出，所以 log 一律走 stderr
//
// 參數:
//
//	cfg: Config - 等級與格式，空字串使用 info / json
//
// 回傳:
//
//	*zap.Logger: 建好的 logger
//	error: 等級或格式無效時回傳
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		if err := level.Set(s); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		zc = zap.NewProductionConfig()
		zc.Encoding = "json"
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.Encoding = "console"
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}
