package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rzbill/battlelog/internal/normalize"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// maxSubmitBytes bounds a log submission body.
const maxSubmitBytes = 32 << 20

// BattlesController exposes ingestion and the battle queries.
type BattlesController struct {
	svc    *battlesvc.Service
	logger logpkg.Logger
}

// NewBattlesController creates a new battles controller.
func NewBattlesController(svc *battlesvc.Service, logger logpkg.Logger) *BattlesController {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &BattlesController{svc: svc, logger: logger}
}

// RegisterRoutes registers ingestion and query routes with the given mux.
func (c *BattlesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/logs", c.handleSubmit)
	// Path used by existing game clients.
	mux.HandleFunc("POST /logs", c.handleSubmit)

	mux.HandleFunc("GET /v1/battles", c.handleList)
	mux.HandleFunc("GET /v1/battles/active", c.handleActive)
	mux.HandleFunc("GET /v1/battles/{id}", c.handleGet)
	mux.HandleFunc("GET /v1/battles/{id}/reports", c.handleReports)
	mux.HandleFunc("GET /v1/battles/{id}/events", c.handleEvents)
}

func (c *BattlesController) log(r *http.Request) logpkg.Logger {
	return logpkg.FromContext(r.Context(), c.logger)
}

func (c *BattlesController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		c.log(r).Error("request failed", logpkg.Str("path", r.URL.Path), logpkg.Err(err))
	}
	writeError(w, status, err.Error())
}

// handleSubmit accepts a JSON array of {"lines": [...], "time": n|null}.
func (c *BattlesController) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var logs []normalize.RawTurnLog
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBytes))
	if err := dec.Decode(&logs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	res, err := c.svc.Submit(r.Context(), logs)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if res.Rejected > 0 {
		c.log(r).Warn("submission had unparsed lines",
			logpkg.Str(logpkg.BattleKey, res.BattleID),
			logpkg.Int("rejected", res.Rejected))
	}
	writeJSON(w, res)
}

func (c *BattlesController) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := c.svc.ListBattles(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	out := make([]battleJSON, 0, len(list))
	for _, b := range list {
		out = append(out, toBattleJSON(b, false))
	}
	writeJSON(w, map[string]any{"battles": out})
}

func (c *BattlesController) handleActive(w http.ResponseWriter, r *http.Request) {
	b, ok, err := c.svc.ActiveBattle(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no active battle")
		return
	}
	writeJSON(w, toBattleJSON(b, false))
}

func (c *BattlesController) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := c.svc.GetBattle(r.Context(), r.PathValue("id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, toBattleJSON(b, true))
}

// handleReports returns {type: data}; ?detail=1 adds the lifecycle flags.
func (c *BattlesController) handleReports(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if q := r.URL.Query().Get("detail"); q == "1" || q == "true" {
		reports, err := c.svc.Reports(r.Context(), id)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		out := make([]reportJSON, 0, len(reports))
		for _, rep := range reports {
			out = append(out, reportJSON{Type: rep.Type, Data: rep.Data, Finalized: rep.Finalized, Degraded: rep.Degraded})
		}
		writeJSON(w, map[string]any{"reports": out})
		return
	}
	reports, err := c.svc.GetReports(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, reports)
}

func (c *BattlesController) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := c.svc.GetEvents(r.Context(), r.PathValue("id"), battlesvc.EventsQuery{
		Filter: r.URL.Query().Get("filter"),
		Limit:  limit,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"events": events})
}
