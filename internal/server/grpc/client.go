package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rzbill/battlelog/internal/normalize"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// BattlesClient calls the battles service over a client connection.
type BattlesClient struct {
	cc grpc.ClientConnInterface
}

// NewBattlesClient returns a client bound to cc.
func NewBattlesClient(cc grpc.ClientConnInterface) *BattlesClient {
	return &BattlesClient{cc: cc}
}

func (c *BattlesClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := toStruct(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, opts...); err != nil {
		return err
	}
	return fromStruct(resp, out)
}

// Submit ingests one submission.
func (c *BattlesClient) Submit(ctx context.Context, logs []normalize.RawTurnLog, opts ...grpc.CallOption) (battlesvc.SubmitResult, error) {
	var out battlesvc.SubmitResult
	err := c.invoke(ctx, "Submit", SubmitRequest{Logs: logs}, &out, opts...)
	return out, err
}

// ListBattles lists battles in creation order.
func (c *BattlesClient) ListBattles(ctx context.Context, opts ...grpc.CallOption) ([]BattleInfo, error) {
	var out ListBattlesResponse
	err := c.invoke(ctx, "ListBattles", struct{}{}, &out, opts...)
	return out.Battles, err
}

// GetReports returns report data keyed by type.
func (c *BattlesClient) GetReports(ctx context.Context, battleID string, opts ...grpc.CallOption) (GetReportsResponse, error) {
	var out GetReportsResponse
	err := c.invoke(ctx, "GetReports", GetReportsRequest{BattleID: battleID}, &out, opts...)
	return out, err
}

// GetEvents returns the decoded events of a battle.
func (c *BattlesClient) GetEvents(ctx context.Context, req GetEventsRequest, opts ...grpc.CallOption) ([]battlesvc.EventView, error) {
	var out GetEventsResponse
	err := c.invoke(ctx, "GetEvents", req, &out, opts...)
	return out.Events, err
}

// Rebuild replays an audit directory into an empty store.
func (c *BattlesClient) Rebuild(ctx context.Context, dir string, opts ...grpc.CallOption) (battlesvc.RebuildResult, error) {
	var out battlesvc.RebuildResult
	err := c.invoke(ctx, "Rebuild", RebuildRequest{Dir: dir}, &out, opts...)
	return out, err
}
