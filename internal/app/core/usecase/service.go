package usecase

import (
	"context"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

// LedgerService 給 gRPC 等多執行緒呼叫端使用的帳本介面
// 實作必須把所有呼叫序列化成單一的事件順序
type LedgerService interface {
	// Submit 套用一筆事件並等待結果
	Submit(ctx context.Context, ev domain.IncomingEvent) error
	// Snapshot 取得目前所有帳戶 (依 ID 排序)
	Snapshot(ctx context.Context) ([]domain.AccountEntry, error)
}
