// Package modkit provides module wiring and core deps
package modkit

import (
	"activitymirror/internal/platform/config"
	"activitymirror/internal/platform/logger"
	"activitymirror/internal/platform/store"
	"activitymirror/internal/settings"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the journal backend is disabled
type Deps struct {
	Log      logger.Logger
	Cfg      config.Conf
	Settings *settings.Settings
	PG       store.TxRunner
	CH       store.Clickhouse
}

// Journaling reports whether at least one journal backend is wired
func (d Deps) Journaling() bool { return d.PG != nil || d.CH != nil }
