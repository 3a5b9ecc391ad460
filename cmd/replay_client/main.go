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
	"time"

	"go.uber.org/zap"

	csv_in "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/in/csvfile"
	grpc_adapter "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/in/grpc"
	csv_out "github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/csvfile"
	"github.com/JoeShih716/go-replay-ledger/internal/config"
	"github.com/JoeShih716/go-replay-ledger/pkg/grpc"
	"github.com/JoeShih716/go-replay-ledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "YAML 設定檔")
	addr := flag.String("addr", "", "伺服器地址 (預設使用設定檔的 server.addr)")
	timeout := flag.Duration("timeout", 5*time.Second, "單筆呼叫逾時")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: replay_client [flags] <transactions.csv>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	target := cfg.Server.Addr
	if *addr != "" {
		target = *addr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := stream(ctx, target, flag.Arg(0), *timeout, os.Stdout, log); err != nil {
		log.Error("replay client failed", zap.Error(err))
		os.Exit(1)
	}
}

// stream 依檔案順序逐筆送出事件，最後把伺服器的帳戶狀態輸出成 CSV
func stream(ctx context.Context, target, path string, timeout time.Duration, out io.Writer, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	conn, err := grpc.Dial(target, grpc.WithInterceptor(grpc.LoggingInterceptor(log)))
	if err != nil {
		return err
	}
	defer conn.Close()
	client := grpc_adapter.NewClient(conn)

	src := csv_in.NewReader(f)
	start := time.Now()
	sent := 0
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		// 必須逐筆等待，並行送出會打亂事件順序
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err = client.Apply(callCtx, ev)
		cancel()
		if err != nil {
			return fmt.Errorf("apply tx %d: %w", ev.ID, err)
		}
		sent++
	}
	log.Info("events sent", zap.Int("count", sent), zap.Duration("elapsed", time.Since(start)))

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reports, err := client.ListAccounts(callCtx)
	if err != nil {
		return err
	}
	return csv_out.NewWriter(out).WriteReports(ctx, reports)
}
