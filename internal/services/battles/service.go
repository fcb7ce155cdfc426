package battlesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rzbill/battlelog/internal/auditlog"
	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/keydict"
	"github.com/rzbill/battlelog/internal/metrics"
	"github.com/rzbill/battlelog/internal/normalize"
	"github.com/rzbill/battlelog/internal/parser"
	"github.com/rzbill/battlelog/internal/report"
	"github.com/rzbill/battlelog/internal/runtime"
	"github.com/rzbill/battlelog/internal/segment"
	"github.com/rzbill/battlelog/internal/turnbuffer"
	"github.com/rzbill/battlelog/pkg/id"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

const tracerName = "battlelog"

// Options customizes a Service. Zero values select defaults.
type Options struct {
	// Parser defaults to the built-in pattern table.
	Parser normalize.Parser
	// Registry defaults to the kinds enabled in the runtime config.
	Registry *report.Registry
	Logger   logpkg.Logger
	Tracer   trace.Tracer
	IDs      *id.Generator
	Now      func() time.Time
}

// Service runs the ingestion pipeline for a single node.
type Service struct {
	rt      *runtime.Runtime
	store   *battle.Store
	audit   *auditlog.Writer
	norm    *normalize.Normalizer
	reg     *report.Registry
	engine  *segment.Engine
	logger  logpkg.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	// maxEvents caps GetEvents results; zero is unlimited.
	maxEvents int

	// mu serializes ingestion. It guards buf, runner and every write to the
	// store. Queries never take it.
	mu     sync.Mutex
	buf    *turnbuffer.Buffer
	runner *report.Runner
}

// Open builds the service and finalizes any report left open by a crash.
func Open(ctx context.Context, rt *runtime.Runtime, opts Options) (*Service, error) {
	cfg := rt.Config()
	if opts.Parser == nil {
		opts.Parser = parser.New()
	}
	if opts.Registry == nil {
		reg, err := report.NewRegistry(cfg.Reporters)
		if err != nil {
			return nil, err
		}
		opts.Registry = reg
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		rt:        rt,
		store:     rt.Store(),
		audit:     rt.Audit(),
		norm:      normalize.New(opts.Parser, normalize.Options{BatchSize: cfg.ParseBatchSize, Workers: cfg.ParseWorkers}),
		reg:       opts.Registry,
		logger:    opts.Logger.With(logpkg.Component("battles")),
		metrics:   rt.Metrics(),
		tracer:    opts.Tracer,
		now:       opts.Now,
		maxEvents: cfg.EventsQueryLimit,
	}
	s.engine = segment.NewEngine(segment.Options{IDs: opts.IDs, Retire: s.retire, Now: opts.Now})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sweepLocked(ctx); err != nil {
		return nil, fmt.Errorf("sweep open reports: %w", err)
	}
	return s, nil
}

// Submit ingests one batch of turn logs. The batch is all-or-nothing.
func (s *Service) Submit(ctx context.Context, logs []normalize.RawTurnLog) (SubmitResult, error) {
	return s.ingest(ctx, logs, "")
}

// ingest runs one batch through the pipeline. A non-empty pin admits the
// batch into that battle instead of letting segmentation choose.
func (s *Service) ingest(ctx context.Context, logs []normalize.RawTurnLog, pin string) (SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "battlelog.submit",
		trace.WithAttributes(attribute.Int("submit.turns", len(logs))))
	defer span.End()
	if pin != "" {
		span.SetAttributes(attribute.String("replay.battle", pin))
	}

	start := time.Now()
	res, err := s.submit(ctx, logs, pin)
	s.metrics.SubmitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Submissions.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return SubmitResult{}, err
	}
	s.metrics.Submissions.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.String("battle.id", res.BattleID),
		attribute.Bool("battle.new", res.NewBattle),
		attribute.Int("submit.events", res.Events),
		attribute.Int("submit.rejected", res.Rejected),
	)
	return res, nil
}

func (s *Service) submit(ctx context.Context, logs []normalize.RawTurnLog, pin string) (SubmitResult, error) {
	if len(logs) == 0 {
		return SubmitResult{}, ErrEmptySubmission
	}

	norm, err := s.norm.Normalize(ctx, logs)
	if err != nil {
		return SubmitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepLocked(ctx); err != nil {
		return SubmitResult{}, fmt.Errorf("sweep open reports: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.resetLocked()
		}
	}()

	tx := s.store.Begin()
	defer tx.Close()

	var adm segment.Admission
	if pin == "" {
		adm, err = s.engine.Admit(tx, segment.Find(norm.Turns))
	} else {
		adm, err = s.engine.AdmitInto(tx, segment.Find(norm.Turns), pin)
	}
	if err != nil {
		return SubmitResult{}, err
	}
	s.metrics.Battles.WithLabelValues(adm.Decision.String()).Inc()
	if err := s.attachLocked(adm.Battle, adm.IsNew); err != nil {
		return SubmitResult{}, err
	}

	b := adm.Battle
	for _, rj := range norm.Rejects {
		b.Unparsed = append(b.Unparsed, rj.Line)
		s.logger.Warn("unparsed line",
			logpkg.Str(logpkg.BattleKey, b.ID),
			logpkg.Int("turn", rj.Turn),
			logpkg.Str("line", rj.Line))
	}
	if b.TimeOrigin == nil {
		b.TimeOrigin = earliest(norm.Turns)
	}

	dict := keydict.New(b.KeyMap)
	recs := make([]turnbuffer.Record, len(norm.Turns))
	times := make([]float64, len(norm.Turns))
	events := 0
	last := 0.0
	if b.TimeOrigin != nil {
		last = *b.TimeOrigin
	}
	for i, t := range norm.Turns {
		if t.Time != nil {
			last = *t.Time
		}
		times[i] = last
		st := battle.Turn{Time: last, Events: make([]battle.Event, 0, len(t.Events))}
		for _, ev := range t.Events {
			data, _ := dict.Encode(ev.Fields)
			st.Events = append(st.Events, battle.Event{Type: ev.Type, Data: data})
		}
		payload, err := battle.MarshalTurnPayload(st)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("encode turn %d: %w", i, err)
		}
		recs[i] = turnbuffer.Record{Header: battle.TurnHeader(st), Payload: payload}
		events += len(t.Events)
	}
	seqs, err := s.buf.Stage(tx.Batch(), recs)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("stage turns: %w", err)
	}
	b.KeyMap = dict.Keys()
	b.Turns += uint64(len(recs))
	lines, err := auditLines(logs, b.Batches)
	if err != nil {
		return SubmitResult{}, err
	}
	b.Batches++

	pending := make(map[report.Kind]report.Update)
	for i, t := range norm.Turns {
		updates, err := s.runner.Step(report.Turn{Seq: seqs[i], Time: times[i], Events: t.Events})
		if err != nil {
			return SubmitResult{}, fmt.Errorf("step reporters: %w", err)
		}
		for _, u := range updates {
			prev, seen := pending[u.Kind]
			if u.Data == nil && seen {
				u.Data = prev.Data
			}
			u.Degraded = u.Degraded || prev.Degraded
			if u.Err == nil {
				u.Err = prev.Err
			}
			pending[u.Kind] = u
		}
	}
	for _, k := range s.reg.Kinds() {
		if u, ok := pending[k]; ok {
			if err := s.applyUpdate(tx, b.ID, u); err != nil {
				return SubmitResult{}, err
			}
		}
	}

	if err := tx.PutBattle(b); err != nil {
		return SubmitResult{}, err
	}

	header := &auditlog.Header{Battle: auditlog.HeaderBattle{ID: b.ID, TimeOrigin: b.TimeOrigin}}
	if err := s.audit.Append(b.ID, header, lines); err != nil {
		s.logger.Error("audit write failed", logpkg.Str(logpkg.BattleKey, b.ID), logpkg.Err(err))
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrAuditWrite, err)
	}
	for _, l := range lines {
		s.metrics.AuditBytes.Add(float64(len(l) + 1))
	}

	if err := tx.Commit(ctx); err != nil {
		return SubmitResult{}, fmt.Errorf("commit: %w", err)
	}
	committed = true

	s.metrics.Turns.Add(float64(len(recs)))
	s.metrics.Events.Add(float64(events))
	s.metrics.Rejects.Add(float64(len(norm.Rejects)))

	res := SubmitResult{
		BattleID:  b.ID,
		NewBattle: adm.IsNew,
		Turns:     len(recs),
		Events:    events,
		Rejected:  len(norm.Rejects),
	}
	if adm.Retired != nil {
		res.Retired = adm.Retired.ID
	}
	if adm.IsNew {
		s.logger.Info("battle created",
			logpkg.Str(logpkg.BattleKey, b.ID),
			logpkg.Str("decision", adm.Decision.String()),
			logpkg.Bool("rollover", adm.Retired != nil),
			logpkg.Uint64("turns", b.Turns))
	}
	return res, nil
}

// auditEntry is one mirror line: a submission tagged with the number of the
// batch it arrived in.
type auditEntry struct {
	normalize.RawTurnLog
	Batch *uint64 `json:"batch,omitempty"`
}

func auditLines(logs []normalize.RawTurnLog, batch uint64) ([]json.RawMessage, error) {
	lines := make([]json.RawMessage, len(logs))
	for i, l := range logs {
		if l.Lines == nil {
			l.Lines = []string{}
		}
		b, err := json.Marshal(auditEntry{RawTurnLog: l, Batch: &batch})
		if err != nil {
			return nil, fmt.Errorf("encode submission %d: %w", i, err)
		}
		lines[i] = b
	}
	return lines, nil
}

// earliest returns the smallest timestamp among turns, nil if none is timed.
func earliest(turns []normalize.Turn) *float64 {
	var out *float64
	for _, t := range turns {
		if t.Time != nil && (out == nil || *t.Time < *out) {
			v := *t.Time
			out = &v
		}
	}
	return out
}

// attachLocked points buf and runner at b, rebuilding reporter state from the
// turn buffer when b already has turns.
func (s *Service) attachLocked(b battle.Battle, fresh bool) error {
	if s.buf != nil && s.buf.BattleID() == b.ID && s.runner != nil && !s.runner.Sealed() {
		return nil
	}
	if fresh {
		buf, err := turnbuffer.Open(s.store.DB(), b.ID)
		if err != nil {
			return err
		}
		s.buf, s.runner = buf, report.NewRunner(b.ID, s.reg, s.logger)
		return nil
	}
	buf, runner, err := s.load(b)
	if err != nil {
		return err
	}
	s.buf, s.runner = buf, runner
	return nil
}

// load opens b's turn buffer and replays it into a new runner.
func (s *Service) load(b battle.Battle) (*turnbuffer.Buffer, *report.Runner, error) {
	buf, err := turnbuffer.Open(s.store.DB(), b.ID)
	if err != nil {
		return nil, nil, err
	}
	items, err := buf.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read turn buffer of %s: %w", b.ID, err)
	}
	_, turns, err := decodeItems(b.KeyMap, items)
	if err != nil {
		return nil, nil, err
	}
	runner := report.NewRunner(b.ID, s.reg, s.logger)
	if err := runner.Rehydrate(turns); err != nil {
		return nil, nil, err
	}
	if len(turns) > 0 {
		s.logger.Debug("rehydrated reporters", logpkg.Str(logpkg.BattleKey, b.ID), logpkg.Int("turns", len(turns)))
	}
	return buf, runner, nil
}

// resetLocked drops cached state after a failed submission.
func (s *Service) resetLocked() {
	s.engine.Reset()
	s.buf, s.runner = nil, nil
}

// applyUpdate merges a runner update into the stored report. A degraded
// update without data keeps the last good data.
func (s *Service) applyUpdate(tx *battle.Txn, battleID string, u report.Update) error {
	prev, err := tx.Report(battleID, string(u.Kind))
	switch {
	case errors.Is(err, battle.ErrNotFound):
	case err != nil:
		return err
	case prev.Finalized:
		return nil
	}
	if u.Err != nil {
		s.metrics.ReporterFailures.WithLabelValues(string(u.Kind)).Inc()
	}
	r := battle.Report{
		BattleID:    battleID,
		Type:        string(u.Kind),
		Data:        prev.Data,
		Finalized:   u.Final,
		Degraded:    u.Degraded || prev.Degraded,
		UpdatedAtMs: s.now().UnixMilli(),
	}
	if u.Data != nil {
		r.Data = u.Data
	}
	return tx.PutReport(r)
}
