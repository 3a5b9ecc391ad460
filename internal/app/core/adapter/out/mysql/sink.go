package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-replay-ledger/pkg/mysql"
)

// 金額欄位使用 MySQL DECIMAL 的上限 (65 位數，小數 30 位)
const (
	amountDigits = 65
	amountScale  = 30
)

// ErrAmountOutOfRange 金額超出欄位精度，寫入會被 MySQL 四捨五入或拒絕
var ErrAmountOutOfRange = errors.New("amount does not fit decimal(65,30)")

// amountLimit 整數部分上限 10^(65-30)
var amountLimit = decimal.New(1, amountDigits-amountScale)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ClientID  uint16          `gorm:"column:client_id;primaryKey;autoIncrement:false"`
	Available decimal.Decimal `gorm:"type:decimal(65,30);not null"`
	Held      decimal.Decimal `gorm:"type:decimal(65,30);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(65,30);not null"`
	Locked    bool            `gorm:"not null"`
	RunID     string          `gorm:"column:run_id;type:char(36);index"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// ReportSink 把最終帳戶狀態 upsert 到 MySQL
type ReportSink struct {
	client *mysql.Client
	runID  domain.RunID
}

func NewReportSink(client *mysql.Client, runID domain.RunID) *ReportSink {
	return &ReportSink{
		client: client,
		runID:  runID,
	}
}

// Migrate 建立或更新 accounts 表
func (s *ReportSink) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{})
}

// WriteReports implements usecase.ReportSink.
// 同一個 client 重跑會覆寫上一次的結果
func (s *ReportSink) WriteReports(ctx context.Context, reports []domain.AccountReport) error {
	if len(reports) == 0 {
		return nil
	}
	rows, err := s.toSQLAccounts(reports)
	if err != nil {
		return err
	}
	if err := s.upsert(ctx, rows).Error; err != nil {
		return fmt.Errorf("upsert accounts: %w", err)
	}
	return nil
}

func (s *ReportSink) upsert(ctx context.Context, rows []sqlAccount) *gorm.DB {
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}},
			UpdateAll: true,
		}).
		Create(&rows)
}

func (s *ReportSink) toSQLAccounts(reports []domain.AccountReport) ([]sqlAccount, error) {
	runID := s.runID.String()
	rows := make([]sqlAccount, 0, len(reports))
	for _, r := range reports {
		for _, v := range []domain.Money{r.Available, r.Held, r.Total} {
			if err := checkAmount(v); err != nil {
				return nil, fmt.Errorf("client %d: %w", r.Client, err)
			}
		}
		rows = append(rows, sqlAccount{
			ClientID:  uint16(r.Client),
			Available: r.Available,
			Held:      r.Held,
			Total:     r.Total,
			Locked:    r.Locked,
			RunID:     runID,
		})
	}
	return rows, nil
}

// checkAmount 寫入前確認數值可以原樣存進 decimal(65,30)
func checkAmount(v domain.Money) error {
	if !v.Equal(v.Truncate(amountScale)) || v.Abs().GreaterThanOrEqual(amountLimit) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, v.String())
	}
	return nil
}

var _ usecase.ReportSink = (*ReportSink)(nil)
