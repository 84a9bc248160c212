// Package http provides the status endpoints served in serve mode
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"activitymirror/internal/core/version"
	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	phttp "activitymirror/internal/platform/net/http"
	"activitymirror/internal/services/journal/repo"
	"activitymirror/internal/services/mirror/domain"
)

// Pinger is satisfied by journal backends that expose Ping
type Pinger interface {
	Ping(context.Context) error
}

// History lists past runs from the journal
type History interface {
	Recent(ctx context.Context, limit int) ([]repo.RunSummary, error)
	Run(ctx context.Context, runID string) (repo.RunDetail, error)
}

// Deps are the handler dependencies
type Deps struct {
	StartedAt time.Time
	Sync      domain.SyncPort
	Status    domain.StatusPort
	// History is nil when no journal can read runs back
	History History
	// Checks are pinged by /healthz, keyed by backend name
	Checks map[string]Pinger
	// Base scopes background passes; cancelled on shutdown
	Base context.Context
	Now  func() time.Time
}

type handlers struct {
	deps Deps
}

// Register mounts the status routes
func Register(r phttp.Router, d Deps) {
	if d.Base == nil {
		d.Base = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{deps: d}

	phttp.GetJSON(r, "/healthz", h.health)
	r.Route("/v1", func(v1 phttp.Router) {
		phttp.GetJSON(v1, "/status", h.status)
		phttp.GetJSON(v1, "/runs", h.runs)
		phttp.GetJSON(v1, "/runs/{id}", h.run)
		phttp.GetJSON(v1, "/version", h.version)
		phttp.PostJSON(v1, "/sync", h.sync)
	})
}

// Check describes a single dependency check
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status  string  `json:"status"` // ok degraded
	Running bool    `json:"running"`
	Started string  `json:"started"`
	Uptime  int64   `json:"uptime"`
	Checks  []Check `json:"checks,omitempty"`
}

func (h *handlers) health(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := HealthResponse{
		Status:  "ok",
		Running: h.deps.Status.Running(),
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.deps.Now().Sub(h.deps.StartedAt).Seconds()),
	}
	for _, name := range []string{"pg", "ch"} {
		p, ok := h.deps.Checks[name]
		if !ok || p == nil {
			continue
		}
		c := Check{Name: name, Status: "ok"}
		if err := p.Ping(ctx); err != nil {
			c.Status, c.Error = "fail", err.Error()
			out.Status = "degraded"
		}
		out.Checks = append(out.Checks, c)
	}
	return out, nil
}

// StatusResponse is the last pass plus whether one is running now
type StatusResponse struct {
	Running bool                  `json:"running"`
	Last    *domain.RunReport     `json:"last,omitempty"`
	Counts  map[domain.Status]int `json:"counts,omitempty"`
	Failed  int                   `json:"failed"`
}

func (h *handlers) status(_ *http.Request) (any, error) {
	out := StatusResponse{Running: h.deps.Status.Running()}
	if last, ok := h.deps.Status.Last(); ok {
		out.Last = &last
		out.Counts = last.Counts()
		out.Failed = last.Failed()
	}
	return out, nil
}

func (h *handlers) runs(r *http.Request) (any, error) {
	if h.deps.History == nil {
		return nil, perr.NotImplementedf("run history needs the postgres journal")
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			return nil, perr.WithField(perr.InvalidArgf("limit must be between 1 and 100"), "limit")
		}
		limit = n
	}
	return h.deps.History.Recent(r.Context(), limit)
}

func (h *handlers) run(r *http.Request) (any, error) {
	if h.deps.History == nil {
		return nil, perr.NotImplementedf("run history needs the postgres journal")
	}
	return h.deps.History.Run(r.Context(), phttp.Param(r, "id"))
}

func (h *handlers) version(_ *http.Request) (any, error) { return version.Info(), nil }

// SyncRequest triggers a pass; Wait blocks until it finishes
type SyncRequest struct {
	Wait bool `json:"wait"`
}

// SyncAccepted is returned when a pass was started in the background
type SyncAccepted struct {
	Started bool `json:"started"`
}

func (h *handlers) sync(r *http.Request, in SyncRequest) (phttp.Response, error) {
	if h.deps.Status.Running() {
		return phttp.Response{}, perr.Conflictf("a sync pass is already running")
	}
	if in.Wait {
		run, err := h.deps.Sync.Sync(r.Context())
		if err != nil {
			return phttp.Response{}, err
		}
		return phttp.OK(run), nil
	}

	log := logger.C(r.Context())
	go func() {
		if _, err := h.deps.Sync.Sync(h.deps.Base); err != nil {
			log.Error().Err(err).Msg("triggered sync pass failed")
		}
	}()
	return phttp.Accepted(SyncAccepted{Started: true}), nil
}
