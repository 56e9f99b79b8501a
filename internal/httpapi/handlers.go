package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/query"
)

type handler struct {
	svc *query.Service
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err.Error())
}

func scopeParam(r *http.Request) (model.Scope, error) {
	return model.ParseScope(r.URL.Query().Get("scope"))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) lineupIdentity(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("players")
	var players []string
	if raw != "" {
		players = strings.Split(raw, ",")
	}
	id, err := h.svc.LineupIdentity(players)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lineup_id": string(id)})
}

func (h *handler) lineupStats(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
		return
	}
	agg, err := h.svc.LineupStats(r.Context(), chi.URLParam(r, "lineupID"), scope)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLineupView(agg))
}

func (h *handler) listLineups(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
		return
	}
	minPoss, err := intParam(r, "min_poss", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_min_poss", err.Error())
		return
	}
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	aggs, err := h.svc.ListLineups(r.Context(), scope, query.LineupFilter{
		TeamID:         r.URL.Query().Get("team"),
		PlayerID:       r.URL.Query().Get("player"),
		MinPossessions: minPoss,
		Limit:          limit,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]lineupView, 0, len(aggs))
	for i := range aggs {
		out = append(out, newLineupView(&aggs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) onOff(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
		return
	}
	agg, err := h.svc.OnOffDifferential(r.Context(), chi.URLParam(r, "playerID"), scope)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOnOffView(agg))
}

func (h *handler) listOnOff(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
		return
	}
	minPoss, err := intParam(r, "min_poss", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_min_poss", err.Error())
		return
	}
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	aggs, err := h.svc.ListOnOff(r.Context(), scope, minPoss, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]onOffView, 0, len(aggs))
	for i := range aggs {
		out = append(out, newOnOffView(&aggs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) gameStatus(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GameStatus(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (h *handler) writeGames(w http.ResponseWriter, games []model.Game, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]gameView, 0, len(games))
	for i := range games {
		out = append(out, newGameView(&games[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.ListGames(r.Context())
	h.writeGames(w, games, err)
}

func (h *handler) pendingGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.PendingGames(r.Context())
	h.writeGames(w, games, err)
}

func (h *handler) stints(w http.ResponseWriter, r *http.Request) {
	gameID, playerID := chi.URLParam(r, "gameID"), chi.URLParam(r, "playerID")
	recs, stints, err := h.svc.Stints(r.Context(), playerID, gameID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStintsView(gameID, playerID, recs, stints))
}

func (h *handler) intervals(w http.ResponseWriter, r *http.Request) {
	size, err := intParam(r, "size", 25)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_interval_size", err.Error())
		return
	}
	windows, err := h.svc.PossessionIntervals(r.Context(), chi.URLParam(r, "gameID"), size)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWindowViews(windows))
}
