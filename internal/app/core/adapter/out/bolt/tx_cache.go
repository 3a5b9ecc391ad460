package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

const txBucket = "tx"

// TxCache 以 BoltDB 檔案保存交易結果，記憶體用量固定，代價是每次讀寫的延遲
type TxCache struct {
	db     *bbolt.DB
	path   string
	tmpDir string // 非空代表暫存目錄，Close 時整個刪除
	logger *zap.Logger
}

// Open 開啟 (或建立) 長期保存的快取檔案。
//
// 參數:
//
//	path: 資料庫檔案路徑，目錄不存在時自動建立
//	logger: zap logger，可為 nil
//
// 回傳:
//
//	*TxCache: 快取實例
//	error: 開檔錯誤
func Open(path string, logger *zap.Logger) (*TxCache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return open(cleanPath, "", &bbolt.Options{Timeout: time.Second}, logger)
}

// OpenRun 在 dir 底下開啟這次執行專用的 tx-cache-<runID>.db，Close 後檔案保留。
// 帳戶只存在記憶體，所以每次啟動都必須從空的快取開始，不能沿用上一次的檔案
func OpenRun(dir string, runID domain.RunID, logger *zap.Logger) (*TxCache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	return Open(filepath.Join(dir, runFileName(runID)), logger)
}

func runFileName(runID domain.RunID) string {
	return "tx-cache-" + runID.String() + ".db"
}

// OpenTemp 在 baseDir (空字串為系統暫存目錄) 底下建立只屬於這次執行的快取，
// Close 時連同目錄一起刪除。暫存資料不需要 fsync
func OpenTemp(baseDir string, runID domain.RunID, logger *zap.Logger) (*TxCache, error) {
	dir, err := os.MkdirTemp(baseDir, "replay-ledger-")
	if err != nil {
		return nil, fmt.Errorf("create temp cache dir: %w", err)
	}
	path := filepath.Join(dir, runFileName(runID))
	c, err := open(path, dir, &bbolt.Options{Timeout: time.Second, NoSync: true, NoFreelistSync: true}, logger)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return c, nil
}

func open(path, tmpDir string, opts *bbolt.Options, logger *zap.Logger) (*TxCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	c := &TxCache{db: db, path: path, tmpDir: tmpDir, logger: logger}
	if err := c.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("tx cache opened", zap.String("path", path), zap.Bool("ephemeral", tmpDir != ""))
	return c, nil
}

func (c *TxCache) ensureBuckets() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(txBucket)); err != nil {
			return fmt.Errorf("create tx bucket: %w", err)
		}
		return nil
	})
}

// Path 資料庫檔案位置
func (c *TxCache) Path() string {
	return c.path
}

// Get implements usecase.TxCache.
func (c *TxCache) Get(id domain.TransactionID) (domain.StoredOutcome, bool, error) {
	var (
		outcome domain.StoredOutcome
		found   bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(txBucket))
		if bucket == nil {
			return fmt.Errorf("tx bucket is missing")
		}
		raw := bucket.Get(encodeKey(id))
		if raw == nil {
			return nil
		}
		decoded, err := decodeOutcome(raw)
		if err != nil {
			return fmt.Errorf("decode tx %d: %w", id, err)
		}
		outcome, found = decoded, true
		return nil
	})
	if err != nil {
		return domain.StoredOutcome{}, false, err
	}
	return outcome, found, nil
}

// Store implements usecase.TxCache.
func (c *TxCache) Store(outcome domain.StoredOutcome) error {
	payload, err := encodeOutcome(outcome)
	if err != nil {
		return fmt.Errorf("encode tx %d: %w", outcome.Original.ID, err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(txBucket))
		if bucket == nil {
			return fmt.Errorf("tx bucket is missing")
		}
		return bucket.Put(encodeKey(outcome.Original.ID), payload)
	})
}

// Len 快取中的交易數
func (c *TxCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(txBucket))
		if bucket == nil {
			return fmt.Errorf("tx bucket is missing")
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// Close 關閉資料庫，暫存快取會一併刪除目錄
func (c *TxCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	if c.tmpDir != "" {
		if rmErr := os.RemoveAll(c.tmpDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	c.logger.Info("tx cache closed", zap.String("path", c.path))
	return err
}

var _ usecase.TxCache = (*TxCache)(nil)
