package middleware

import (
	stdhttp "net/http"
	"runtime/debug"

	perr "activitymirror/internal/platform/errors"
	"activitymirror/internal/platform/logger"
	pnet "activitymirror/internal/platform/net"
	phttp "activitymirror/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into a 500 envelope of kind panic
// http.ErrAbortHandler is re-raised so the server aborts the response
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == stdhttp.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if id := pnet.RequestID(r.Context()); id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			phttp.RespondError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
