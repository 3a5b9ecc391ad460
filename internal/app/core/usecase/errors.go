package usecase

import "errors"

var (
	// ErrCacheFailure TxCache 讀寫失敗，整次重放必須中止
	ErrCacheFailure = errors.New("transaction cache failure")

	// ErrLedgerConsumed IntoAccounts 之後不能再套用事件
	ErrLedgerConsumed = errors.New("ledger already consumed")

	// ErrSequencerStopped Sequencer 已停止 (ctx 結束或致命錯誤)
	ErrSequencerStopped = errors.New("sequencer stopped")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
