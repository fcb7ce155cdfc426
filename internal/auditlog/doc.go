// Package auditlog writes and reads the per-battle mirror files.
//
// Every accepted submission is appended verbatim, one JSON document per
// line, to <dir>/<battle-id>.jsonl. The first line of a file may be a header
// of the form {"battle":{"id":...,"time_origin":...}}. Files are write-once
// and are only read for audit and recovery.
//
// Writes are fsynced (file, and directory on creation) before Append
// returns, unless the writer was built with Sync disabled.
package auditlog
