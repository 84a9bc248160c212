package http

import (
	"net/http"

	"activitymirror/internal/platform/net/http/bind"
)

// JSONHandler adapts a JSON request/response handler to a platform Handler
// the body may be empty; T then keeps its zero value
func JSONHandler[T any](fn func(*http.Request, T) (Response, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r, bind.JSONOptions{AllowEmptyBody: true, DisallowUnknown: true})
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		if err != nil {
			return Error(err)
		}
		return out
	})
}

// JSONHandlerNoBody calls fn without parsing a request body and wraps the result
func JSONHandlerNoBody(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return Error(err)
		}
		return OK(out)
	})
}
