// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rzbill/battlelog/internal/normalize"
	grpcserver "github.com/rzbill/battlelog/internal/server/grpc"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// GrpcTransport implements BattlesTransport over gRPC.
type GrpcTransport struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcTransport constructs a new GrpcTransport using the provided dialer.
func NewGrpcTransport(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcTransport {
	return &GrpcTransport{dial: dial}
}

func (t *GrpcTransport) withClient(ctx context.Context, fn func(cli *grpcserver.BattlesClient) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(grpcserver.NewBattlesClient(conn))
}

// Submit sends one submission.
func (t *GrpcTransport) Submit(ctx context.Context, logs []normalize.RawTurnLog) (res battlesvc.SubmitResult, err error) {
	err = t.withClient(ctx, func(cli *grpcserver.BattlesClient) error {
		res, err = cli.Submit(ctx, logs)
		return err
	})
	return res, err
}

// ListBattles lists battles in creation order.
func (t *GrpcTransport) ListBattles(ctx context.Context) (out []grpcserver.BattleInfo, err error) {
	err = t.withClient(ctx, func(cli *grpcserver.BattlesClient) error {
		out, err = cli.ListBattles(ctx)
		return err
	})
	return out, err
}

// GetReports fetches the reports of a battle.
func (t *GrpcTransport) GetReports(ctx context.Context, battleID string) (out grpcserver.GetReportsResponse, err error) {
	err = t.withClient(ctx, func(cli *grpcserver.BattlesClient) error {
		out, err = cli.GetReports(ctx, battleID)
		return err
	})
	return out, err
}

// GetEvents fetches decoded events of a battle.
func (t *GrpcTransport) GetEvents(ctx context.Context, req grpcserver.GetEventsRequest) (out []battlesvc.EventView, err error) {
	err = t.withClient(ctx, func(cli *grpcserver.BattlesClient) error {
		out, err = cli.GetEvents(ctx, req)
		return err
	})
	return out, err
}

// Rebuild asks the server to replay an audit directory.
func (t *GrpcTransport) Rebuild(ctx context.Context, dir string) (out battlesvc.RebuildResult, err error) {
	err = t.withClient(ctx, func(cli *grpcserver.BattlesClient) error {
		out, err = cli.Rebuild(ctx, dir)
		return err
	})
	return out, err
}
