package transports

import (
	"context"

	"github.com/rzbill/battlelog/internal/normalize"
	grpcserver "github.com/rzbill/battlelog/internal/server/grpc"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
)

// BattlesTransport abstracts the transport used by the CLI.
type BattlesTransport interface {
	Submit(ctx context.Context, logs []normalize.RawTurnLog) (battlesvc.SubmitResult, error)
	ListBattles(ctx context.Context) ([]grpcserver.BattleInfo, error)
	GetReports(ctx context.Context, battleID string) (grpcserver.GetReportsResponse, error)
	GetEvents(ctx context.Context, req grpcserver.GetEventsRequest) ([]battlesvc.EventView, error)
	Rebuild(ctx context.Context, dir string) (battlesvc.RebuildResult, error)
}
