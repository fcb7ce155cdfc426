package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/normalize"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// ServiceName is the fully qualified name of the battles service.
const ServiceName = "battlelog.v1.Battles"

// SubmitRequest carries one submission of raw turns.
type SubmitRequest struct {
	Logs []normalize.RawTurnLog `json:"logs"`
}

// BattleInfo is the wire form of a battle.
type BattleInfo struct {
	ID          string   `json:"id"`
	CreatedAtMs int64    `json:"createdAtMs"`
	Active      bool     `json:"active"`
	TimeOrigin  *float64 `json:"timeOrigin,omitempty"`
	Turns       uint64   `json:"turns"`
	Unparsed    int      `json:"unparsed"`
}

// ListBattlesResponse lists battles in creation order.
type ListBattlesResponse struct {
	Battles []BattleInfo `json:"battles"`
}

// GetReportsRequest names a battle.
type GetReportsRequest struct {
	BattleID string `json:"battleId"`
}

// GetReportsResponse holds report data keyed by report type.
type GetReportsResponse struct {
	Reports map[string]json.RawMessage `json:"reports"`
}

// GetEventsRequest selects events of a battle.
type GetEventsRequest struct {
	BattleID string `json:"battleId"`
	Filter   string `json:"filter,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// GetEventsResponse holds decoded events in turn order.
type GetEventsResponse struct {
	Events []battlesvc.EventView `json:"events"`
}

// RebuildRequest names the audit directory to replay.
type RebuildRequest struct {
	Dir string `json:"dir"`
}

// BattlesServer is the server API for the battles service.
type BattlesServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBattles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReports(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rebuild(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary(method string, call func(BattlesServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BattlesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BattlesServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BattlesServiceDesc describes the battles service for grpc.Server.RegisterService.
var BattlesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattlesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Submit", BattlesServer.Submit),
		unary("ListBattles", BattlesServer.ListBattles),
		unary("GetReports", BattlesServer.GetReports),
		unary("GetEvents", BattlesServer.GetEvents),
		unary("Rebuild", BattlesServer.Rebuild),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "battlelog/v1/battles.proto",
}

type battlesSvc struct {
	svc *battlesvc.Service
}

func (s *battlesSvc) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SubmitRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.svc.Submit(ctx, req.Logs)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *battlesSvc) ListBattles(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	battles, err := s.svc.ListBattles(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := ListBattlesResponse{Battles: make([]BattleInfo, 0, len(battles))}
	for _, b := range battles {
		out.Battles = append(out.Battles, BattleInfo{
			ID:          b.ID,
			CreatedAtMs: b.CreatedAtMs,
			Active:      b.Active,
			TimeOrigin:  b.TimeOrigin,
			Turns:       b.Turns,
			Unparsed:    len(b.Unparsed),
		})
	}
	return toStruct(out)
}

func (s *battlesSvc) GetReports(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetReportsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	reports, err := s.svc.GetReports(ctx, req.BattleID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(GetReportsResponse{Reports: reports})
}

func (s *battlesSvc) GetEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetEventsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be non-negative")
	}
	events, err := s.svc.GetEvents(ctx, req.BattleID, battlesvc.EventsQuery{Filter: req.Filter, Limit: req.Limit})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(GetEventsResponse{Events: events})
}

func (s *battlesSvc) Rebuild(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RebuildRequest
	if err := fromStruct(in, &req); err != nil || req.Dir == "" {
		return nil, status.Error(codes.InvalidArgument, "dir is required")
	}
	res, err := s.svc.Rebuild(ctx, req.Dir)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, battle.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, battlesvc.ErrEmptySubmission), errors.Is(err, battlesvc.ErrInvalidFilter),
		errors.Is(err, battlesvc.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, battlesvc.ErrStoreNotEmpty):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
