package grpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
)

// Client LedgerService 的呼叫端
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Apply 送出一筆事件
func (c *Client) Apply(ctx context.Context, ev domain.IncomingEvent, opts ...grpc.CallOption) error {
	out := new(structpb.Struct)
	return c.conn.Invoke(ctx, applyMethod, eventToStruct(ev), out, opts...)
}

// ListAccounts 取得伺服器目前的帳戶報表
func (c *Client) ListAccounts(ctx context.Context, opts ...grpc.CallOption) ([]domain.AccountReport, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, listAccountsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	reports := make([]domain.AccountReport, 0, len(out.GetValues()))
	for i, v := range out.GetValues() {
		r, err := reportFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("account #%d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decimalFromString(s string) (domain.Money, error) {
	return decimal.NewFromString(s)
}
