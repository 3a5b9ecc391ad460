package usecase

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

// Ledger 帳本：持有全部帳戶與唯一的 TxCache
//
// 結構:
//
//	accounts: 帳戶 ID -> 帳戶，第一次出現時自動建立
//	cache: 交易結果快取
//	consumed: IntoAccounts 之後為 true
//
// Ledger 不做同步，呼叫端需保證單一寫入者 (見 Sequencer)
type Ledger struct {
	accounts map[domain.AccountID]*domain.Account
	cache    TxCache
	logger   *zap.Logger
	consumed bool
}

// LedgerOption 定義 Ledger 的配置選項函數
type LedgerOption func(*Ledger)

// WithLogger 設定被拒絕事件的 debug log
func WithLogger(logger *zap.Logger) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger 建立空帳本
func NewLedger(cache TxCache, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		accounts: make(map[domain.AccountID]*domain.Account),
		cache:    cache,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply 套用單筆事件。
//
// 參數:
//
//	ev: 已通過輸入層驗證的事件
//
// 回傳:
//
//	error: 只有 TxCache 失敗 (ErrCacheFailure) 或帳本已結束時回傳；
//	       業務規則不成立 (餘額不足、凍結、無對應交易) 一律靜默略過
func (l *Ledger) Apply(ev domain.IncomingEvent) error {
	if l.consumed {
		return ErrLedgerConsumed
	}

	account, ok := l.accounts[ev.Account]
	if !ok {
		account = &domain.Account{}
		l.accounts[ev.Account] = account
	}

	prev, found, err := l.cache.Get(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: get tx %d: %w", ErrCacheFailure, ev.ID, err)
	}
	var prevPtr *domain.StoredOutcome
	if found {
		prevPtr = &prev
	}

	next, applied := account.Apply(prevPtr, ev)
	if !applied {
		l.logger.Debug("event declined",
			zap.Uint32("tx", uint32(ev.ID)),
			zap.Uint16("client", uint16(ev.Account)),
			zap.Stringer("type", ev.Kind),
		)
		return nil
	}

	if err := l.cache.Store(next); err != nil {
		return fmt.Errorf("%w: store tx %d: %w", ErrCacheFailure, ev.ID, err)
	}
	return nil
}

// Snapshot 回傳所有帳戶的副本，依帳戶 ID 由小到大排序
func (l *Ledger) Snapshot() []domain.AccountEntry {
	out := make([]domain.AccountEntry, 0, len(l.accounts))
	for id, a := range l.accounts {
		out = append(out, domain.AccountEntry{ID: id, Account: *a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IntoAccounts 結束帳本並回傳最終帳戶狀態 (排序同 Snapshot)
// 之後的 Apply 會回傳 ErrLedgerConsumed
func (l *Ledger) IntoAccounts() []domain.AccountEntry {
	out := l.Snapshot()
	l.consumed = true
	l.accounts = nil
	return out
}

// Len 目前的帳戶數量
func (l *Ledger) Len() int {
	return len(l.accounts)
}
