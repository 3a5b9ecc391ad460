package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

// EventSource 有序、有限的事件來源，結束時回傳 io.EOF
type EventSource interface {
	Next() (domain.IncomingEvent, error)
}

// ReportSink 最終報表的輸出端 (CSV / Kafka / MySQL)
type ReportSink interface {
	WriteReports(ctx context.Context, reports []domain.AccountReport) error
}

// CoreUseCase 是核心業務邏輯層：重放事件並輸出報表
type CoreUseCase struct {
	ledger *Ledger
	logger *zap.Logger
}

func NewCoreUseCase(ledger *Ledger, logger *zap.Logger) *CoreUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoreUseCase{
		ledger: ledger,
		logger: logger,
	}
}

// Replay 依序套用來源中的所有事件。
// 第一個解碼錯誤或快取錯誤就中止，不會有部分結果模式
func (c *CoreUseCase) Replay(ctx context.Context, src EventSource) (int, error) {
	applied := 0
	for {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return applied, fmt.Errorf("decode event #%d: %w", applied+1, err)
		}
		if err := c.ledger.Apply(ev); err != nil {
			return applied, err
		}
		applied++
	}
	c.logger.Info("replay finished", zap.Int("events", applied), zap.Int("accounts", c.ledger.Len()))
	return applied, nil
}

// Report 結束帳本並把報表交給 sink，sink 的錯誤原樣回傳
func (c *CoreUseCase) Report(ctx context.Context, sink ReportSink) error {
	reports := domain.BuildReports(c.ledger.IntoAccounts())
	return sink.WriteReports(ctx, reports)
}
