// Package lax implements tools for building easy RESTful APIs.
//
//	    ^ ^
//	("\(-_-)/")
//	)(       )(
//	((...) (...))
//
// Take it easy!
package lax

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
)

// A flag for debugging the server.
var debug atomic.Bool

// EnableDebugMode enables debugging for the API, so debug output is printed.
func EnableDebugMode() {
	debug.Store(true)
}

// DisableDebugMode disables debugging for the API, so debug output is hidden.
func DisableDebugMode() {
	debug.Store(false)
}

// DebugModeEnabled returns `true` if debug mode is enabled.
func DebugModeEnabled() bool {
	return debug.Load()
}

// Request wraps http.Request to provide convenience methods.
type Request struct {
	*http.Request
}

// JSON loads JSON data from a request into the given address.
//
// Numbers are kept as json.Number when decoding into interfaces, and unknown
// fields are rejected.
func (request *Request) JSON(ptr any) error {
	decoder := json.NewDecoder(request.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()

	return decoder.Decode(ptr)
}

// MethodHandler is a handle for an HTTP method.
type MethodHandler = func(request *Request) any

// View represents a view for a RESTful API.
type View struct {
	// The handler for HEAD requests.
	Head MethodHandler
	// The handler for GET requests.
	Get MethodHandler
	// The handler for POST requests.
	Post MethodHandler
	// The handler for PUT requests.
	Put MethodHandler
	// The handler for DELETE requests.
	Delete MethodHandler
}

// Response represents a response to return.
type Response struct {
	Status int
	Data   any
}

// IssueDescription is an issue created with Issue.
type IssueDescription struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// Issue creates an issue for use with MakeErrorListResponse.
func Issue(path, problem string) IssueDescription {
	return IssueDescription{path, problem}
}

// MakeResponse creates a response with a status code and data.
func MakeResponse(status int, data any) *Response {
	return &Response{status, data}
}

// MakeBadRequestResponse creates a 400 error response from one object.
func MakeBadRequestResponse(data any) *Response {
	switch v := data.(type) {
	case error:
		// Get the string from errors for 400 responses.
		return &Response{http.StatusBadRequest, v.Error()}
	default:
		return &Response{http.StatusBadRequest, v}
	}
}

// MakeErrorListResponse creates a 400 error response from parts.
func MakeErrorListResponse(parts ...IssueDescription) *Response {
	return &Response{http.StatusBadRequest, parts}
}

// A default handler for handling methods that are not allowed.
func methodNotAllowedHandler(request *Request) any {
	return &Response{http.StatusMethodNotAllowed, "Method Not Allowed"}
}

// Get the pointer to the handler for the HTTP request method.
func dispatch(view *View, requestMethod string) (MethodHandler, int) {
	var handler MethodHandler
	defaultStatus := http.StatusOK

	switch {
	case strings.EqualFold(requestMethod, http.MethodGet):
		handler = view.Get
	case strings.EqualFold(requestMethod, http.MethodPost):
		handler = view.Post
		defaultStatus = http.StatusCreated
	case strings.EqualFold(requestMethod, http.MethodPut):
		handler = view.Put
	case strings.EqualFold(requestMethod, http.MethodDelete):
		handler = view.Delete
		defaultStatus = http.StatusNoContent
	case strings.EqualFold(requestMethod, http.MethodHead):
		handler = view.Head
	}

	if handler == nil {
		handler = methodNotAllowedHandler
		defaultStatus = http.StatusMethodNotAllowed
	}

	return handler, defaultStatus
}

// Normalise response data so we can consume it.
func normalise(response any, defaultStatus int) (*Response, error) {
	switch v := response.(type) {
	case *Response:
		return v, nil
	case error:
		return &Response{http.StatusInternalServerError, nil}, v
	default:
		return &Response{defaultStatus, v}, nil
	}
}

// Wrap creates an HandlerFunc from a View.
func Wrap(view View) http.HandlerFunc {
	return func(writer http.ResponseWriter, httpRequest *http.Request) {
		request := Request{httpRequest}
		method, defaultStatus := dispatch(&view, request.Method)
		response, responseErr := normalise(method(&request), defaultStatus)

		if responseErr != nil {
			if response.Status < 500 || DebugModeEnabled() {
				http.Error(writer, responseErr.Error(), response.Status)
			} else {
				http.Error(writer, "Internal Server Error", response.Status)
			}

			return
		}

		data, err := json.Marshal(response.Data)

		if err != nil {
			if DebugModeEnabled() {
				http.Error(writer, err.Error(), http.StatusInternalServerError)
			} else {
				http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(response.Status)

		if response.Status != http.StatusNoContent {
			_, _ = writer.Write(append(data, '\n'))
		}
	}
}
