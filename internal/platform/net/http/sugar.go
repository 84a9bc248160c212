package http

import "net/http"

// GetJSON mounts a pure JSON handler for GET
func GetJSON(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, JSONHandlerNoBody(h))
}

// PostJSON mounts a JSON handler for POST that chooses its own response status
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (Response, error)) {
	r.Post(path, JSONHandler(h))
}
