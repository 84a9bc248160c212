package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Param returns the named path parameter of the matched route, "" if absent
func Param(r *http.Request, name string) string { return chi.URLParam(r, name) }
