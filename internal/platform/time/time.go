// Package time contains time related helpers
package time

import "time"

// Ptr returns t in UTC as a pointer, or nil if t is zero
// sql and columnar drivers store the nil as NULL
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
