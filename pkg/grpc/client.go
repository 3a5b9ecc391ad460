package grpc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

type dialConfig struct {
	interceptors []grpc.UnaryClientInterceptor
	extra        []grpc.DialOption
}

// Option 設定 Dial 的選項
type Option func(*dialConfig)

// WithInterceptor 加入 UnaryClientInterceptor，依加入順序串接
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) Option {
	return func(c *dialConfig) {
		c.interceptors = append(c.interceptors, interceptor)
	}
}

// WithDialOptions 附加原生的 grpc.DialOption (測試時用來注入 bufconn dialer)
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *dialConfig) {
		c.extra = append(c.extra, opts...)
	}
}

// Dial 建立通往單一伺服器的連線
//
// 參數:
//
//	target: string - 伺服器地址 (e.g., "localhost:50051")
//	opts: ...Option - 攔截器或額外的連線選項
//
// 回傳值:
//
//	*grpc.ClientConn: 延遲連線，第一次呼叫時才真正建立
//	error: 目標格式錯誤時回傳
func Dial(target string, opts ...Option) (*grpc.ClientConn, error) {
	var cfg dialConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	dialOpts := []grpc.DialOption{
		// 內部工具連線，不走 TLS
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second, // 無活動時每 10 秒 Ping 一次
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
	}
	if len(cfg.interceptors) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(cfg.interceptors...))
	}
	dialOpts = append(dialOpts, cfg.extra...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	return conn, nil
}

// LoggingInterceptor 以 zap 記錄每次呼叫的方法、狀態碼與耗時
// 成功的呼叫只在 debug 等級輸出
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("target", cc.Target()),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if code != codes.OK {
			logger.Warn("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("grpc call", fields...)
		}
		return err
	}
}
