package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Response is the raw outcome of a dispatched call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Field looks up a gjson path inside the JSON body. Non-JSON bodies yield a
// result that does not exist.
func (r *Response) Field(path string) gjson.Result {
	if r == nil || !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// ResponseError is returned for every failed call: a non-2xx status, in which
// case Response holds the raw reply, or a transport failure, in which case
// Response is nil and Err holds the cause.
type ResponseError struct {
	Method   string
	Path     string
	Response *Response
	Err      error
}

func (e *ResponseError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Response.Status)
	}
	return fmt.Sprintf("api %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status carried by err, or 0 when err is not a
// ResponseError with a response attached.
func Status(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.Status
	}
	return 0
}

// IsForbidden reports whether err carries a 403 response.
func IsForbidden(err error) bool {
	return Status(err) == http.StatusForbidden
}
