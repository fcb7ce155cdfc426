// Package config provides loading and environment overlay for battlelog
// runtime configuration. It exposes a Default() baseline that Load and
// FromEnv refine.
//
// Example:
//
//	cfg, err := config.Load("/etc/battlelog.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.FromEnv(&cfg); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{DataDir: "/var/lib/battlelog", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
package config
