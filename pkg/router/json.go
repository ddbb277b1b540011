package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrResponseStarted marks errors raised after the status line went out.
// Such errors are logged and never written to the client.
var ErrResponseStarted = errors.New("response already started")

// WriteJSON writes v as the JSON body with the given status.
// v is encoded before anything is written, so an encode error leaves w untouched.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Encode: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("Write: %w: %w", ErrResponseStarted, err)
	}
	return nil
}

// DecodeJSON decodes the request body into v and closes it.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("Decode: %w", err)
	}
	return nil
}
