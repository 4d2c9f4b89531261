package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// envelope is the single response shape used by every endpoint. Successful
// responses carry data and success=true; failures carry data=null,
// success=false and an optional errors list.
type envelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitzero"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	if message == "" {
		message = "Success"
	}
	writeJSON(w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func writeError(w http.ResponseWriter, status int, message string, errs ...string) {
	// The failure envelope always carries an errors list, empty included.
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, envelope{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     errs,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
