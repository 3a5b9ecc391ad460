package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/in/grpc"
	bolt_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/bolt"
	memory_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-replay-ledger/internal/config"
	"github.com/JoeShih716/go-replay-ledger/pkg/logger"
	"github.com/JoeShih716/go-replay-ledger/pkg/wal"
)

// 輸送帶長度
const sequencerBuffer = 1024

func main() {
	// 1. 載入設定
	configPath := flag.String("config", "", "YAML 設定檔")
	addr := flag.String("addr", "", "gRPC 監聽地址 (預設 :50051)")
	walPath := flag.String("wal", "", "WAL 檔案路徑 (空白則不落地)")
	cacheBackend := flag.String("cache", "", "交易快取: memory | disk")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *walPath != "" {
		cfg.Server.WALPath = *walPath
	}
	if *cacheBackend != "" {
		cfg.Cache.Backend = *cacheBackend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	runID := domain.NewRunID()
	log := baseLog.With(zap.String("run_id", runID.String()))

	if err := serve(cfg, runID, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		_ = baseLog.Sync()
		os.Exit(1)
	}
	log.Info("server exited")
	_ = baseLog.Sync()
}

func serve(cfg config.Config, runID domain.RunID, log *zap.Logger) error {
	// 2. 交易快取
	var cache usecase.TxCache
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		cache = memory_adapter.NewTxCache()
	default:
		var (
			c   *bolt_adapter.TxCache
			err error
		)
		if cfg.Cache.Dir == "" {
			c, err = bolt_adapter.OpenTemp("", runID, log)
		} else {
			c, err = bolt_adapter.OpenRun(cfg.Cache.Dir, runID, log)
		}
		if err != nil {
			return err
		}
		defer c.Close()
		cache = c
	}

	// 3. 初始化 WAL (可選)
	var walFile *wal.WAL
	if cfg.Server.WALPath != "" {
		w, err := wal.NewWAL(cfg.Server.WALPath)
		if err != nil {
			return fmt.Errorf("init wal: %w", err)
		}
		defer w.Close()
		walFile = w
	}

	// 4. Sequencer 會先從 WAL 恢復帳本
	ledger := usecase.NewLedger(cache, usecase.WithLogger(log))
	seq, err := memory_adapter.NewSequencer(ledger, walFile, sequencerBuffer, log)
	if err != nil {
		return fmt.Errorf("recover ledger: %w", err)
	}

	// 5. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.Register(s, grpc_adapter.NewGrpcServer(seq))
	reflection.Register(s)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sequencer 要比 gRPC server 晚停，讓處理中的請求拿到結果
	seqCtx, stopSeq := context.WithCancel(context.Background())
	defer stopSeq()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return seq.Run(seqCtx)
	})
	g.Go(func() error {
		log.Info("starting grpc server", zap.String("addr", cfg.Server.Addr))
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Graceful Shutdown
		<-gctx.Done()
		log.Info("shutting down server...")
		s.GracefulStop()
		stopSeq()
		return nil
	})
	return g.Wait()
}
