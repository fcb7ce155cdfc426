// Package client provides the `battlelog` command-line client.
//
// The CLI talks to the battlelog gRPC endpoint to submit turn logs and to
// inspect battles from a terminal. The address is read from the
// BATTLELOG_GRPC environment variable (default 127.0.0.1:50051).
//
// Usage
//
//	battlelog submit --file turns.json
//	battlelog submit --lines combat.txt --time 1718000000
//	battlelog battles list
//	battlelog reports 0190a1b2c3d4e5f6
//	battlelog events 0190a1b2c3d4e5f6 --filter 'event_type == "SPAWN"' --limit 20
//
//	# audit mirror files are read locally
//	battlelog audit show 0190a1b2c3d4e5f6 --dir ./data/audit --lines
//	battlelog audit rebuild --dir ./backup/audit
package client
