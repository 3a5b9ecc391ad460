package memory

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-replay-ledger/pkg/wal"
)

// sequencerRequest 請求包裝channel，讓 Submit / Snapshot 可以等待結果
type sequencerRequest struct {
	Event    domain.IncomingEvent
	Snapshot bool
	Result   chan sequencerResult // 讓呼叫端等這個 channel
}

type sequencerResult struct {
	Accounts []domain.AccountEntry
	Err      error
}

// Sequencer 以單一 goroutine 持有 Ledger (LMAX 架構)，
// 多個 gRPC 呼叫端的事件經由 channel 排成一個全序
type Sequencer struct {
	ledger *usecase.Ledger
	// Write-Ahead Logging，nil 代表不落地
	wal *wal.WAL
	// 輸送帶 負責接收請求
	requests chan *sequencerRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	// Run 結束時關閉，stopErr 為結束原因
	done    chan struct{}
	stopErr error
	logger  *zap.Logger
}

// NewSequencer 建立一個新的 Sequencer 實例，並先從 WAL 恢復帳本
//
// 參數:
//
//	ledger: 全新的帳本 (快取必須是空的，否則重放會被視為重複交易)
//	w: Write-Ahead Log 實例，可為 nil
//	buffer: 輸送帶長度
//	logger: zap logger
//
// 回傳:
//
//	*Sequencer: Sequencer 實例
//	error: WAL 恢復錯誤
func NewSequencer(ledger *usecase.Ledger, w *wal.WAL, buffer int, logger *zap.Logger) (*Sequencer, error) {
	if buffer <= 0 {
		buffer = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sequencer{
		ledger:   ledger,
		wal:      w,
		requests: make(chan *sequencerRequest, buffer),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &sequencerRequest{
					Result: make(chan sequencerResult, 1),
				}
			},
		},
		done:   make(chan struct{}),
		logger: logger,
	}

	// 在啟動前先恢復資料
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverFromWAL 從 WAL 重放事件 (不寫 WAL，不透過 Channel)
// 只有 NewSequencer 呼叫，此時還是單執行緒
func (s *Sequencer) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	recovered := 0
	err := s.wal.ReadAll(func(jsonRaw []byte) error {
		var ev domain.IncomingEvent
		if err := json.Unmarshal(jsonRaw, &ev); err != nil {
			return err
		}
		if err := s.ledger.Apply(ev); err != nil {
			return err
		}
		recovered++
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("recovered from wal", zap.Int("events", recovered), zap.Int("accounts", s.ledger.Len()))
	return nil
}

// Submit implements usecase.LedgerService.
//
// Submit(等待) -> Channel -> Run Loop (核心) -> WAL -> Ledger.Apply -> Result Channel -> Submit(收到結果)
func (s *Sequencer) Submit(ctx context.Context, ev domain.IncomingEvent) error {
	res := s.roundTrip(ctx, sequencerRequest{Event: ev})
	return res.Err
}

// Snapshot implements usecase.LedgerService.
// 快照同樣經過輸送帶，確保看到的是某個事件之後的一致狀態
func (s *Sequencer) Snapshot(ctx context.Context) ([]domain.AccountEntry, error) {
	res := s.roundTrip(ctx, sequencerRequest{Snapshot: true})
	return res.Accounts, res.Err
}

func (s *Sequencer) roundTrip(ctx context.Context, in sequencerRequest) sequencerResult {
	// 1. 放入輸送帶 (使用 sync.Pool 減少 GC)
	req := s.requestPool.Get().(*sequencerRequest)
	req.Event = in.Event
	req.Snapshot = in.Snapshot
	// 清空 Channel (理論上應該是空的)
	select {
	case <-req.Result:
	default:
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		s.requestPool.Put(req)
		return sequencerResult{Err: ctx.Err()}
	case <-s.done:
		s.requestPool.Put(req)
		return sequencerResult{Err: s.stopErr}
	}

	// 2. 等待結果；已送出的請求不能放棄，否則同一個 req 會被重複使用
	select {
	case res := <-req.Result:
		s.requestPool.Put(req)
		return res
	case <-s.done:
		// Run 結束前可能已經處理完這筆
		select {
		case res := <-req.Result:
			return res
		default:
			return sequencerResult{Err: s.stopErr}
		}
	}
}

// Run 啟動核心迴圈 (阻塞)，ctx 結束時把剩下的請求處理完再返回
// 快取錯誤屬於致命錯誤，會直接結束並回傳
func (s *Sequencer) Run(ctx context.Context) error {
	err := s.loop(ctx)
	if err != nil {
		s.stopErr = err
	} else {
		s.stopErr = usecase.ErrSequencerStopped
	}
	close(s.done)
	return err
}

func (s *Sequencer) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			return s.drain()
		case req := <-s.requests:
			if err := s.process(req); err != nil {
				return err
			}
		}
	}
}

func (s *Sequencer) drain() error {
	for {
		select {
		case req := <-s.requests:
			if err := s.process(req); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// process 處理單筆請求並回傳結果，只有致命錯誤才回傳 error
func (s *Sequencer) process(req *sequencerRequest) error {
	if req.Snapshot {
		req.Result <- sequencerResult{Accounts: s.ledger.Snapshot()}
		return nil
	}

	// 1. 寫入 WAL (Critical Path)
	if s.wal != nil {
		if err := s.wal.Write(req.Event); err != nil {
			s.logger.Error("wal write failed", zap.Uint32("tx", uint32(req.Event.ID)), zap.Error(err))
			req.Result <- sequencerResult{Err: usecase.ErrWALWriteFailed}
			return nil
		}
	}

	// 2. 執行業務邏輯
	if err := s.ledger.Apply(req.Event); err != nil {
		s.logger.Error("ledger apply failed", zap.Uint32("tx", uint32(req.Event.ID)), zap.Error(err))
		req.Result <- sequencerResult{Err: err}
		return err
	}
	req.Result <- sequencerResult{}
	return nil
}

var _ usecase.LedgerService = (*Sequencer)(nil)
