package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

var header = []string{"client", "available", "held", "total", "locked"}

// Writer 以 CSV 輸出報表：client,available,held,total,locked
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteReports implements usecase.ReportSink.
func (w *Writer) WriteReports(ctx context.Context, reports []domain.AccountReport) error {
	out := csv.NewWriter(w.w)
	if err := out.Write(header); err != nil {
		return err
	}
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := []string{
			strconv.FormatUint(uint64(r.Client), 10),
			r.Available.String(),
			r.Held.String(),
			r.Total.String(),
			strconv.FormatBool(r.Locked),
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("write client %d: %w", r.Client, err)
		}
	}
	out.Flush()
	return out.Error()
}

var _ usecase.ReportSink = (*Writer)(nil)
