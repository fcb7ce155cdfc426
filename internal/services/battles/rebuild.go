package battlesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rzbill/battlelog/internal/auditlog"
	"github.com/rzbill/battlelog/internal/normalize"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// Rebuild replays the audit files in dir, in battle creation order. Lines
// are regrouped into the batches they were submitted in, and each batch is
// admitted into the battle its file header names, so the rebuilt store has
// the same battles under the same ids. The store must be empty and dir must
// differ from the service's own audit directory.
func (s *Service) Rebuild(ctx context.Context, dir string) (RebuildResult, error) {
	var res RebuildResult
	src, err := filepath.Abs(dir)
	if err != nil {
		return res, err
	}
	own, err := filepath.Abs(s.audit.Dir())
	if err != nil {
		return res, err
	}
	if src == own {
		return res, fmt.Errorf("rebuild source %s is the live audit directory", dir)
	}
	existing, err := s.ListBattles(ctx)
	if err != nil {
		return res, err
	}
	if len(existing) > 0 {
		return res, fmt.Errorf("%w: %d battles", ErrStoreNotEmpty, len(existing))
	}

	names, err := auditlog.List(src)
	if err != nil {
		return res, err
	}
	battles := make(map[string]struct{})
	for _, name := range names {
		f, err := auditlog.ReadFile(filepath.Join(src, name+auditlog.Ext))
		if err != nil {
			return res, err
		}
		res.Files++
		batches, err := splitBatches(f.Submissions)
		if err != nil {
			return res, fmt.Errorf("%s: %w", name, err)
		}
		pin := ""
		if f.Header != nil {
			pin = f.Header.Battle.ID
		}
		for i, logs := range batches {
			out, err := s.ingest(ctx, logs, pin)
			if err != nil {
				return res, fmt.Errorf("replay %s batch %d: %w", name, i+1, err)
			}
			battles[out.BattleID] = struct{}{}
			res.Batches++
			res.Submissions += len(logs)
		}
		s.logger.Info("replayed audit file",
			logpkg.Str("source", name),
			logpkg.Str(logpkg.BattleKey, pin),
			logpkg.Int("batches", len(batches)),
			logpkg.Int("submissions", len(f.Submissions)))
	}
	res.Battles = len(battles)
	return res, nil
}

// splitBatches groups consecutive lines with the same batch tag. Untagged
// lines form a batch of their own.
func splitBatches(lines []json.RawMessage) ([][]normalize.RawTurnLog, error) {
	var (
		out  [][]normalize.RawTurnLog
		last *uint64
	)
	for i, line := range lines {
		var e auditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if e.Batch == nil || last == nil || *e.Batch != *last {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], e.RawTurnLog)
		last = e.Batch
	}
	return out, nil
}
