// Package httpserver provides the REST gateway for battlelog: log ingestion,
// battle/report/event queries, health and Prometheus metrics. CORS is open
// to any origin so browser-side game clients can post logs directly.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	svc, _ := battlesvc.Open(ctx, rt, battlesvc.Options{})
//	s := httpserver.New(rt, svc, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
