package usecase

import "github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"

// TxCache 交易結果快取的介面 (記憶體 / 磁碟兩種實作)
type TxCache interface {
	// Get 讀取交易 ID 最後一次的結果，沒有紀錄時 ok=false。回傳的是副本
	Get(id domain.TransactionID) (outcome domain.StoredOutcome, ok bool, err error)
	// Store 以 outcome.Original.ID 為 key 直接覆蓋
	Store(outcome domain.StoredOutcome) error
}
