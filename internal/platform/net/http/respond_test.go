package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "activitymirror/internal/platform/errors"
	pnet "activitymirror/internal/platform/net"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestHandle_OKEnvelope(t *testing.T) {
	h := Handle(func(*stdhttp.Request) Response { return OK(map[string]int{"repos": 2}) })

	req := httptest.NewRequest(stdhttp.MethodGet, "/v1/status", nil)
	req = req.WithContext(pnet.WithRequest(req.Context(), "req-7"))
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, stdhttp.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	env := decode(t, rr)
	assert.Equal(t, 200, env.StatusCode)
	assert.Equal(t, "OK", env.Status)
	assert.Equal(t, "req-7", env.RequestID)
	assert.Equal(t, map[string]any{"repos": float64(2)}, env.Data)
}

func TestHandle_ErrorMapsStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
		kind string
	}{
		{perr.Conflictf("sync already running"), stdhttp.StatusConflict, "conflict"},
		{perr.NotFoundf("no run yet"), stdhttp.StatusNotFound, "not_found"},
		{perr.Unavailablef("upstream down"), stdhttp.StatusServiceUnavailable, "unavailable"},
		{perr.WithField(perr.New(perr.ErrorCodeValidation, "bad"), "wait"), stdhttp.StatusBadRequest, "validation"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		Handle(func(*stdhttp.Request) Response { return Error(c.err) })(rr, httptest.NewRequest(stdhttp.MethodPost, "/", nil))

		require.Equal(t, c.want, rr.Code, c.kind)
		env := decode(t, rr)
		assert.Equal(t, c.kind, env.Kind)
		assert.Equal(t, c.err.Error(), env.Error)
		assert.Nil(t, env.Data)
	}
}

func TestHandle_NoContentAndHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	Handle(func(*stdhttp.Request) Response {
		r := NoContent()
		r.Header = stdhttp.Header{"X-Run": []string{"abc"}}
		return r
	})(rr, httptest.NewRequest(stdhttp.MethodPost, "/", nil))

	assert.Equal(t, stdhttp.StatusNoContent, rr.Code)
	assert.Equal(t, "abc", rr.Header().Get("X-Run"))
	assert.Empty(t, rr.Body.String())
}

func TestJSONHandler_BindsAndPassesThrough(t *testing.T) {
	type in struct {
		Wait bool `json:"wait"`
	}
	h := JSONHandler(func(_ *stdhttp.Request, v in) (Response, error) {
		if v.Wait {
			return OK("waited"), nil
		}
		return Accepted("started"), nil
	})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(`{"wait":true}`)))
	assert.Equal(t, stdhttp.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", stdhttp.NoBody))
	assert.Equal(t, stdhttp.StatusAccepted, rr.Code)
	assert.Equal(t, "started", decode(t, rr).Data)

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(`{"nope":1}`)))
	assert.Equal(t, stdhttp.StatusBadRequest, rr.Code)
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, httptest.NewRequest(stdhttp.MethodGet, "/", nil), perr.Unauthorizedf("bad token"))
	assert.Equal(t, stdhttp.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decode(t, rr).Kind)
}
