package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

func startServer(t *testing.T) *Client {
	t.Helper()

	seq, err := memory.NewSequencer(usecase.NewLedger(memory.NewTxCache()), nil, 16, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	seqDone := make(chan struct{})
	go func() {
		defer close(seqDone)
		_ = seq.Run(ctx)
	}()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	Register(s, NewGrpcServer(seq))
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		s.Stop()
		cancel()
		<-seqDone
	})
	return NewClient(conn)
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestApplyAndListAccounts(t *testing.T) {
	client := startServer(t)
	ctx := callCtx(t)

	events := []domain.IncomingEvent{
		domain.NewDeposit(1, 2, domain.MustAmount("2")),
		domain.NewDeposit(2, 1, domain.MustAmount("1.5")),
		domain.NewWithdrawal(3, 2, domain.MustAmount("5")), // 餘額不足，靜默拒絕
		domain.NewDispute(2, 1),
	}
	for _, ev := range events {
		require.NoError(t, client.Apply(ctx, ev))
	}

	reports, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, domain.AccountID(1), reports[0].Client)
	assert.True(t, reports[0].Available.IsZero())
	assert.Equal(t, "1.5", reports[0].Held.String())
	assert.Equal(t, "1.5", reports[0].Total.String())

	assert.Equal(t, domain.AccountID(2), reports[1].Client)
	assert.Equal(t, "2", reports[1].Available.String())
	assert.False(t, reports[1].Locked)
}

func TestApplyChargebackLocksAccount(t *testing.T) {
	client := startServer(t)
	ctx := callCtx(t)

	require.NoError(t, client.Apply(ctx, domain.NewDeposit(1, 9, domain.MustAmount("3"))))
	require.NoError(t, client.Apply(ctx, domain.NewDispute(1, 9)))
	require.NoError(t, client.Apply(ctx, domain.NewChargeback(1, 9)))

	reports, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Locked)
	assert.True(t, reports[0].Total.IsZero())
}

func TestApplyInvalidEvent(t *testing.T) {
	client := startServer(t)
	ctx := callCtx(t)

	bad := []*structpb.Struct{
		{Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue("deposit"), "client": structpb.NewNumberValue(1),
			"tx": structpb.NewNumberValue(1), "amount": structpb.NewStringValue("-1"),
		}},
		{Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue("refund"), "client": structpb.NewNumberValue(1),
			"tx": structpb.NewNumberValue(1),
		}},
		{Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue("deposit"), "client": structpb.NewNumberValue(70000),
			"tx": structpb.NewNumberValue(1), "amount": structpb.NewStringValue("1"),
		}},
		{},
	}
	for _, req := range bad {
		err := client.conn.Invoke(ctx, applyMethod, req, new(structpb.Struct))
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}

	reports, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestApplyAcceptsStringNumbers(t *testing.T) {
	client := startServer(t)
	ctx := callCtx(t)

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type":   structpb.NewStringValue(" deposit "),
		"client": structpb.NewStringValue("4"),
		"tx":     structpb.NewStringValue("10"),
		"amount": structpb.NewStringValue("0.25"),
	}}
	require.NoError(t, client.conn.Invoke(ctx, applyMethod, req, new(structpb.Struct)))

	reports, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, domain.AccountID(4), reports[0].Client)
	assert.Equal(t, "0.25", reports[0].Available.String())
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(usecase.ErrSequencerStopped)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(usecase.ErrCacheFailure)))
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(&domain.ParseError{Field: "tx", Err: domain.ErrMissingField})))
}

func TestEventStructRoundTrip(t *testing.T) {
	ev := domain.NewWithdrawal(4294967295, 65535, domain.MustAmount("12.3456"))
	back, err := eventFromStruct(eventToStruct(ev))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, ev.Account, back.Account)
	assert.True(t, ev.Amount.Equal(back.Amount))

	ctrl := eventToStruct(domain.NewResolve(5, 1))
	_, hasAmount := ctrl.GetFields()["amount"]
	assert.False(t, hasAmount)
}
