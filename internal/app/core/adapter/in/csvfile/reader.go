package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

// Reader 把 CSV (type, client, tx, amount) 解碼成事件
//
// 第一列是標頭，欄位前後空白會被去除；
// dispute / resolve / chargeback 可以省略 amount 欄，type 欄為空的列 (含空白列) 會被略過
type Reader struct {
	r       *csv.Reader
	line    int
	started bool
}

// NewReader 建立 CSV 事件來源
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// 欄位數可變 (amount 可省略)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Next implements usecase.EventSource. 讀完時回傳 io.EOF
func (r *Reader) Next() (domain.IncomingEvent, error) {
	if !r.started {
		r.started = true
		if _, err := r.readRecord(); err != nil {
			if err == io.EOF {
				return domain.IncomingEvent{}, io.EOF
			}
			return domain.IncomingEvent{}, err
		}
	}

	for {
		record, err := r.readRecord()
		if err != nil {
			return domain.IncomingEvent{}, err
		}
		if field(record, 0) == "" {
			continue
		}
		ev, err := domain.ParseEvent(field(record, 0), field(record, 1), field(record, 2), field(record, 3))
		if err != nil {
			return domain.IncomingEvent{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return ev, nil
	}
}

func (r *Reader) readRecord() ([]string, error) {
	record, err := r.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}
	r.line, _ = r.r.FieldPos(0)
	return record, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

var _ usecase.EventSource = (*Reader)(nil)
