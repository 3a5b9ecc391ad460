package memory

import (
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

// TxCache 純記憶體的交易結果快取，沒有持久化，記憶體隨交易數成長
type TxCache struct {
	outcomes map[domain.TransactionID]domain.StoredOutcome
}

// NewTxCache 建立空的記憶體快取
func NewTxCache() *TxCache {
	return &TxCache{
		outcomes: make(map[domain.TransactionID]domain.StoredOutcome),
	}
}

// Get implements usecase.TxCache.
// StoredOutcome 是值型別，回傳即為副本
func (c *TxCache) Get(id domain.TransactionID) (domain.StoredOutcome, bool, error) {
	outcome, ok := c.outcomes[id]
	return outcome, ok, nil
}

// Store implements usecase.TxCache.
func (c *TxCache) Store(outcome domain.StoredOutcome) error {
	c.outcomes[outcome.Original.ID] = outcome
	return nil
}

// Len 快取中的交易數
func (c *TxCache) Len() int {
	return len(c.outcomes)
}

var _ usecase.TxCache = (*TxCache)(nil)
