package httpapi

import (
	"net/http"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/query"
)

// ErrorResponse is the error shape of every failed request.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	data, _ := sonic.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusOf maps facade errors onto HTTP status codes and error codes.
func statusOf(err error) (int, string) {
	switch {
	case crerr.Is(err, query.ErrLineupNotFound):
		return http.StatusNotFound, "lineup_not_found"
	case crerr.Is(err, query.ErrPlayerNotFound):
		return http.StatusNotFound, "player_not_found"
	case crerr.Is(err, query.ErrGameNotFound):
		return http.StatusNotFound, "game_not_found"
	case crerr.Is(err, lineup.ErrMalformedID):
		return http.StatusBadRequest, "malformed_lineup"
	case crerr.Is(err, lineup.ErrInvalidCardinality):
		return http.StatusBadRequest, "invalid_lineup"
	case crerr.Is(err, query.ErrInvalidIntervalSize):
		return http.StatusBadRequest, "invalid_interval_size"
	case errkind.IsConfig(err):
		return http.StatusBadRequest, "invalid_parameter"
	case errkind.IsRecoverable(err):
		return http.StatusConflict, "busy"
	case errkind.IsQuery(err):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
