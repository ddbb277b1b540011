package router

import (
	"encoding/json"
	"io"
)

type Error interface {
	error
	StatusCode() int
	Encode(w io.Writer) error
}

// JsonError is encoded as {"error": "..."} with Code as the response status.
type JsonError struct {
	Code int    `json:"-"`
	Err  string `json:"error"`
	// cause is logged but never sent to the client.
	cause error
}

func NewJsonError(code int, err string) JsonError {
	return JsonError{
		Code: code,
		Err:  err,
	}
}

// Wrap returns a copy of e that records cause.
func (e JsonError) Wrap(cause error) JsonError {
	e.cause = cause
	return e
}

func (e JsonError) StatusCode() int {
	return e.Code
}

func (e JsonError) Error() string {
	if e.cause != nil {
		return e.Err + ": " + e.cause.Error()
	}
	return e.Err
}

func (e JsonError) Unwrap() error {
	return e.cause
}

func (e JsonError) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}
