// Package module wires the status endpoints onto the mirror ports
package module

import (
	"context"
	"time"

	"activitymirror/internal/modkit"
	phttp "activitymirror/internal/platform/net/http"
	"activitymirror/internal/platform/store"

	"activitymirror/internal/services/mirror/domain"
	statushttp "activitymirror/internal/services/status/http"
)

// Ports are the ports this module consumes from the mirror module
type Ports struct {
	Sync    domain.SyncPort
	Status  domain.StatusPort
	History statushttp.History
}

// Module defines the status module
type Module struct {
	deps    modkit.Deps
	ports   Ports
	base    context.Context
	started time.Time
}

var _ modkit.Module = (*Module)(nil)

// New constructs the status module; base scopes passes triggered over http
func New(base context.Context, deps modkit.Deps, ports Ports) *Module {
	if ports.Sync == nil || ports.Status == nil {
		panic("status module requires the mirror Sync and Status ports")
	}
	return &Module{deps: deps, ports: ports, base: base, started: time.Now()}
}

// Name returns the module name
func (m *Module) Name() string { return "status" }

// Ports returns the consumed ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts /healthz and /v1/*
func (m *Module) MountRoutes(r phttp.Router) {
	checks := map[string]statushttp.Pinger{}
	if p, ok := m.deps.PG.(store.Pinger); ok && m.deps.PG != nil {
		checks["pg"] = p
	}
	if p, ok := m.deps.CH.(store.Pinger); ok && m.deps.CH != nil {
		checks["ch"] = p
	}
	statushttp.Register(r, statushttp.Deps{
		StartedAt: m.started,
		Sync:      m.ports.Sync,
		Status:    m.ports.Status,
		History:   m.ports.History,
		Checks:    checks,
		Base:      m.base,
	})
}
