// Package status serves the mirror's health and trigger endpoints in serve mode
package status

import (
	"context"
	"time"

	"activitymirror/internal/modkit"
	"activitymirror/internal/platform/logger"
	phttp "activitymirror/internal/platform/net/http"
	"activitymirror/internal/platform/net/middleware"

	"github.com/go-chi/chi/v5"
)

// Options configure the status server
type Options struct {
	Addr        string
	CORSOrigins []string
	Timeout     time.Duration
	Slow        time.Duration
}

// NewServer builds the server with the common middleware stack and mounts mods
func NewServer(opt Options, mods ...modkit.Module) *phttp.Server {
	s := phttp.NewServer(opt.Addr, func(m *chi.Mux) {
		m.Use(middleware.Defaults(opt.Timeout, opt.Slow)...)
		if len(opt.CORSOrigins) > 0 {
			m.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: opt.CORSOrigins}))
		}
	})
	log := logger.Named("status")
	r := s.Router()
	for _, m := range mods {
		m.MountRoutes(r)
		log.Debug().Str("module", m.Name()).Msg("routes mounted")
	}
	return s
}

// Serve runs the server until ctx is done
func Serve(ctx context.Context, opt Options, mods ...modkit.Module) error {
	return NewServer(opt, mods...).Run(ctx)
}
