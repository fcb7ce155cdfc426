package client

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	transports "github.com/rzbill/battlelog/internal/cmd/client/transports"
)

// grpcAddrFromEnv returns the gRPC server address from BATTLELOG_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("BATTLELOG_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPCContext dials the battlelog gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(_ context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func getTransport() transports.BattlesTransport {
	return transports.NewGrpcTransport(dialGRPCContext)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
