// Package runtime wires storage, config, metrics and the audit mirror into a
// single-node battlelog instance. It exposes Open/Close, a basic health check,
// and accessors used by the battles service.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	svc, _ := battlesvc.Open(context.Background(), rt, battlesvc.Options{})
package runtime
