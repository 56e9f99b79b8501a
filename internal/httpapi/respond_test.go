package httpapi

import (
	"net/http"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/pable/go-lineup-metrics/internal/ingest"
	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/query"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{crerr.Wrapf(query.ErrLineupNotFound, "L1"), http.StatusNotFound, "lineup_not_found"},
		{crerr.Wrapf(query.ErrPlayerNotFound, "p1"), http.StatusNotFound, "player_not_found"},
		{crerr.Wrapf(query.ErrGameNotFound, "g1"), http.StatusNotFound, "game_not_found"},
		{crerr.Wrapf(lineup.ErrMalformedID, "x"), http.StatusBadRequest, "malformed_lineup"},
		{crerr.Wrapf(query.ErrInvalidIntervalSize, "7"), http.StatusBadRequest, "invalid_interval_size"},
		{crerr.Wrapf(query.ErrInvalidInput, "blank"), http.StatusBadRequest, "invalid_request"},
		{crerr.Wrapf(ingest.ErrGameBusy, "g1"), http.StatusConflict, "busy"},
		{crerr.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, c := range cases {
		status, code := statusOf(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.code, code, c.err.Error())
	}
}
