// Package grpcserver hosts the gRPC server for battlelog. It registers the
// standard grpc.health.v1 service and the battlelog.v1.Battles service, whose
// messages are google.protobuf.Struct documents mirroring the HTTP bodies.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	svc, _ := battlesvc.Open(ctx, rt, battlesvc.Options{})
//	s := grpcserver.New(rt, svc)
//	_ = s.ListenAndServe(ctx, ":50051")
//
// Clients use BattlesClient over any grpc.ClientConnInterface.
package grpcserver
