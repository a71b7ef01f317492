// Package httpx contains JSON request/response helpers and the error
// renderer shared by all REST handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/serr"
)

// devMode controls whether error responses include the underlying error
// message. Enabled only for local development; production responses stay
// generic.
var devMode bool

func EnableDevMode() {
	devMode = true
}

func ReadJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func WriteJSON(w http.ResponseWriter, status int, resp any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	return enc.Encode(resp)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// HandleErr logs err with request context and writes the client-facing
// response. ServiceErrors render their status code and caller-safe message;
// anything else renders as a generic 500. The wrapped cause is never sent to
// the client outside dev mode.
func HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	attrs := []any{
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	}

	var se *serr.ServiceError
	if errors.As(err, &se) {
		for k, v := range se.Env {
			attrs = append(attrs, "env_"+k, v)
		}
		slog.Error("request failed", attrs...)

		resp := errorResponse{Error: se.Msg}
		if devMode && se.Err != nil {
			resp.Detail = se.Err.Error()
		}
		_ = WriteJSON(w, se.StatusCode, resp)
		return
	}

	slog.Error("request failed", attrs...)

	resp := errorResponse{Error: "Internal Server Error"}
	if devMode {
		resp.Detail = err.Error()
	}
	_ = WriteJSON(w, http.StatusInternalServerError, resp)
}
