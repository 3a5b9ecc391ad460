package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	csv_in "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/in/csvfile"
	bolt_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/bolt"
	csv_out "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/csvfile"
	kafka_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-replay-ledger/internal/config"
	"github.com/JoeShih716/go-replay-ledger/pkg/logger"
	"github.com/JoeShih716/go-replay-ledger/pkg/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

// run 重放一個 CSV 檔並輸出帳戶報表
//
// 參數:
//
//	args: 命令列參數 (不含程式名稱)
//	stdout: CSV 報表輸出
//	stderr: 用法說明輸出
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// 1. 解析參數
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML 設定檔")
	cacheBackend := fs.String("cache", "", "交易快取: memory | disk")
	cacheDir := fs.String("cache-dir", "", "disk 快取目錄 (空白則使用暫存目錄並在結束時刪除)")
	sinkKind := fs.String("sink", "", "報表輸出: csv | kafka | mysql")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: replay [flags] <transactions.csv>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one input file")
	}

	// 2. 載入設定，旗標優先
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *cacheBackend != "" {
		cfg.Cache.Backend = *cacheBackend
	}
	if *cacheDir != "" {
		cfg.Cache.Dir = *cacheDir
	}
	if *sinkKind != "" {
		cfg.Sink.Kind = *sinkKind
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := domain.NewRunID()
	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = baseLog.Sync() }()
	log := baseLog.With(zap.String("run_id", runID.String()))

	// 3. 開啟輸入檔
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	// 4. 交易快取
	cache, closeCache, err := openCache(cfg.Cache, runID, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			log.Warn("close tx cache", zap.Error(err))
		}
	}()

	// 5. 報表輸出
	sink, closeSink, err := openSink(ctx, cfg, runID, stdout, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn("close report sink", zap.Error(err))
		}
	}()

	// 6. 重放並輸出
	core := usecase.NewCoreUseCase(usecase.NewLedger(cache, usecase.WithLogger(log)), log)
	if _, err := core.Replay(ctx, csv_in.NewReader(f)); err != nil {
		return err
	}
	return core.Report(ctx, sink)
}

func openCache(cfg config.CacheConfig, runID domain.RunID, log *zap.Logger) (usecase.TxCache, func() error, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		return memory_adapter.NewTxCache(), func() error { return nil }, nil
	case config.CacheDisk:
		var (
			c   *bolt_adapter.TxCache
			err error
		)
		if cfg.Dir == "" {
			c, err = bolt_adapter.OpenTemp("", runID, log)
		} else {
			// 每次執行一個檔案，保留下來供事後檢查
			c, err = bolt_adapter.OpenRun(cfg.Dir, runID, log)
		}
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidCacheBackend, cfg.Backend)
	}
}

func openSink(ctx context.Context, cfg config.Config, runID domain.RunID, stdout io.Writer, log *zap.Logger) (usecase.ReportSink, func() error, error) {
	switch cfg.Sink.Kind {
	case config.SinkCSV:
		return csv_out.NewWriter(stdout), func() error { return nil }, nil
	case config.SinkKafka:
		s, err := kafka_adapter.NewSink(cfg.Sink.Kafka, runID)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.SinkMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return nil, nil, err
		}
		s := mysql_adapter.NewReportSink(client, runID)
		if err := s.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidSink, cfg.Sink.Kind)
	}
}
