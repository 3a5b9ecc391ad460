package grpc

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

const (
	ServiceName = "replayledger.v1.LedgerService"

	applyMethod        = "/" + ServiceName + "/Apply"
	listAccountsMethod = "/" + ServiceName + "/ListAccounts"
)

// LedgerServer gRPC 服務端介面
//
// 訊息使用 structpb，Apply 的欄位與 CSV 相同: type, client, tx, amount
type LedgerServer interface {
	Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error)
}

type GrpcServer struct {
	ledger usecase.LedgerService
}

func NewGrpcServer(ledger usecase.LedgerService) *GrpcServer {
	return &GrpcServer{
		ledger: ledger,
	}
}

// Register 把服務掛到 grpc.Server
func Register(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Apply 套用一筆事件
// 被帳本拒絕 (餘額不足、凍結、未知交易) 不算錯誤，回傳空結構
func (s *GrpcServer) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	// 1. 解析欄位
	ev, err := eventFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}

	// 2. 交給 Sequencer
	if err := s.ledger.Submit(ctx, ev); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// ListAccounts 依 client 排序回傳目前所有帳戶
func (s *GrpcServer) ListAccounts(ctx context.Context, _ *structpb.Struct) (*structpb.ListValue, error) {
	entries, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(entries))}
	for _, r := range domain.BuildReports(entries) {
		out.Values = append(out.Values, structpb.NewStructValue(reportToStruct(r)))
	}
	return out, nil
}

// toStatus 轉換成 gRPC 狀態碼
func toStatus(err error) error {
	var perr *domain.ParseError
	switch {
	case errors.As(err, &perr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, usecase.ErrSequencerStopped):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func eventFromStruct(req *structpb.Struct) (domain.IncomingEvent, error) {
	fields := req.GetFields()
	return domain.ParseEvent(
		fieldString(fields["type"]),
		fieldString(fields["client"]),
		fieldString(fields["tx"]),
		fieldString(fields["amount"]),
	)
}

// fieldString 數字或字串都接受，交給 domain 統一驗證
func fieldString(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	default:
		return ""
	}
}

func eventToStruct(ev domain.IncomingEvent) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type":   structpb.NewStringValue(ev.Kind.String()),
		"client": structpb.NewNumberValue(float64(ev.Account)),
		"tx":     structpb.NewNumberValue(float64(ev.ID)),
	}
	if ev.Kind.HasAmount() {
		fields["amount"] = structpb.NewStringValue(ev.Amount.String())
	}
	return &structpb.Struct{Fields: fields}
}

func reportToStruct(r domain.AccountReport) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"client":    structpb.NewNumberValue(float64(r.Client)),
		"available": structpb.NewStringValue(r.Available.String()),
		"held":      structpb.NewStringValue(r.Held.String()),
		"total":     structpb.NewStringValue(r.Total.String()),
		"locked":    structpb.NewBoolValue(r.Locked),
	}}
}

func reportFromStruct(s *structpb.Struct) (domain.AccountReport, error) {
	fields := s.GetFields()
	client, err := strconv.ParseUint(fieldString(fields["client"]), 10, 16)
	if err != nil {
		return domain.AccountReport{}, err
	}
	r := domain.AccountReport{
		Client: domain.AccountID(client),
		Locked: fields["locked"].GetBoolValue(),
	}
	// 餘額可能為負 (爭議提款)，不能用 ParseAmount
	for _, f := range []struct {
		name string
		dst  *domain.Money
	}{
		{"available", &r.Available},
		{"held", &r.Held},
		{"total", &r.Total},
	} {
		m, err := decimalFromString(fieldString(fields[f.name]))
		if err != nil {
			return domain.AccountReport{}, err
		}
		*f.dst = m
	}
	return r, nil
}

// LoggingInterceptor 記錄每個 RPC 的耗時與狀態碼
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unavailable {
			logger.Error("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Apply", Handler: applyHandler},
		{MethodName: "ListAccounts", Handler: listAccountsHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func applyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Apply(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: applyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Apply(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listAccountsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).ListAccounts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listAccountsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).ListAccounts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var _ LedgerServer = (*GrpcServer)(nil)
