package store

import (
	"activitymirror/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithRole tags clickhouse client info with the process role (sync, serve)
func WithRole(role string) Option {
	return func(s *Store) error {
		s.role = role
		return nil
	}
}
