package domain

import "github.com/google/uuid"

// RunID 一次重放 (或一次 server 啟動) 的識別碼，寫入 log、暫存檔名與報表
type RunID = uuid.UUID

// NewRunID 產生新的 RunID
func NewRunID() RunID {
	return uuid.New()
}

// AccountReport 最終報表的一列
type AccountReport struct {
	Client    AccountID `json:"client"`
	Available Money     `json:"available"`
	Held      Money     `json:"held"`
	Total     Money     `json:"total"`
	Locked    bool      `json:"locked"`
}

// NewAccountReport 由帳戶快照產生報表列
func NewAccountReport(entry AccountEntry) AccountReport {
	return AccountReport{
		Client:    entry.ID,
		Available: entry.Account.Balance,
		Held:      entry.Account.Held,
		Total:     entry.Account.Total(),
		Locked:    entry.Account.Frozen(),
	}
}

// BuildReports 依輸入順序 (已排序) 轉換為報表
func BuildReports(entries []AccountEntry) []AccountReport {
	out := make([]AccountReport, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewAccountReport(e))
	}
	return out
}
