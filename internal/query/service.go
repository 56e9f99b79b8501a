// Package query is the read-side facade over the snapshot store: lineup
// stats, on/off splits, stints and possession windows.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/aggregator"
	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/stint"
	"github.com/pable/go-lineup-metrics/internal/storage"
)

var (
	ErrMalformedLineup     = lineup.ErrMalformedID
	ErrLineupNotFound      = errkind.New("lineup not found", errkind.Query)
	ErrPlayerNotFound      = errkind.New("player not found in scope", errkind.Query)
	ErrGameNotFound        = errkind.New("game not found", errkind.Query)
	ErrInvalidIntervalSize = errkind.New("interval size must be 10, 25, 50 or 100", errkind.Query, errkind.Config)
	ErrInvalidInput        = errkind.New("invalid input", errkind.Query)
)

// IntervalSizes are the supported possession window sizes.
var IntervalSizes = []int{10, 25, 50, 100}

// Store is the part of the snapshot store the facade reads from.
type Store interface {
	GetLineup(ctx context.Context, id model.LineupID) (*model.Lineup, error)
	LineupAggregate(ctx context.Context, scope model.Scope, id model.LineupID) (*model.LineupAggregate, error)
	LineupAggregates(ctx context.Context, scope model.Scope, f storage.LineupFilter) ([]model.LineupAggregate, error)
	PlayerOnOff(ctx context.Context, scope model.Scope, playerID string) (*model.PlayerOnOffAggregate, error)
	PlayerOnOffAggregates(ctx context.Context, scope model.Scope, minOnPossessions, limit int) ([]model.PlayerOnOffAggregate, error)
	PlayerGames(ctx context.Context, scope model.Scope, playerID string) ([]model.PlayerGame, error)
	PlayerAttributes(ctx context.Context, ids []string) (map[string]model.PlayerAttributes, error)
	PlayerStints(ctx context.Context, gameID, playerID string) ([]model.PlayerStintRecord, error)
	Possessions(ctx context.Context, gameID string) ([]model.PossessionRecord, error)
	GetGame(ctx context.Context, gameID string) (*model.Game, error)
	ListGames(ctx context.Context) ([]model.Game, error)
	PendingGames(ctx context.Context) ([]model.Game, error)
	RebuildAggregates(ctx context.Context, scope model.Scope) error
}

type Service struct {
	store      Store
	thresholds aggregator.Thresholds
}

func NewService(store Store, thresholds aggregator.Thresholds) *Service {
	return &Service{store: store, thresholds: thresholds}
}

// LineupIdentity returns the canonical id of five players in any order.
func (s *Service) LineupIdentity(players []string) (model.LineupID, error) {
	return lineup.ID(players)
}

// LineupStats returns a lineup's aggregate in scope. A lineup that exists
// but played no possessions in scope yields a zero aggregate.
func (s *Service) LineupStats(ctx context.Context, raw string, scope model.Scope) (*model.LineupAggregate, error) {
	id, err := lineup.ParseID(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	agg, err := s.store.LineupAggregate(ctx, scope, id)
	if err != nil {
		return nil, crerr.Wrap(err, "get lineup stats")
	}
	if agg == nil {
		l, err := s.store.GetLineup(ctx, id)
		if err != nil {
			return nil, crerr.Wrap(err, "get lineup")
		}
		if l == nil {
			return nil, crerr.Wrapf(ErrLineupNotFound, "lineup %s", id)
		}
		agg = &model.LineupAggregate{Scope: scope, LineupID: l.ID, TeamID: l.TeamID, Players: l.Players}
	}
	if err := s.fillComposite(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *Service) fillComposite(ctx context.Context, agg *model.LineupAggregate) error {
	attrs, err := s.store.PlayerAttributes(ctx, agg.Players[:])
	if err != nil {
		return crerr.Wrap(err, "get player attributes")
	}
	agg.Composite = aggregator.Composite(agg.Players, attrs)
	return nil
}

// LineupFilter narrows ListLineups.
type LineupFilter = storage.LineupFilter

// ListLineups returns lineup aggregates in scope with composites filled.
func (s *Service) ListLineups(ctx context.Context, scope model.Scope, f LineupFilter) ([]model.LineupAggregate, error) {
	aggs, err := s.store.LineupAggregates(ctx, scope, f)
	if err != nil {
		return nil, crerr.Wrap(err, "list lineups")
	}
	var ids []string
	for _, a := range aggs {
		ids = append(ids, a.Players[:]...)
	}
	attrs, err := s.store.PlayerAttributes(ctx, ids)
	if err != nil {
		return nil, crerr.Wrap(err, "get player attributes")
	}
	for i := range aggs {
		aggs[i].Composite = aggregator.Composite(aggs[i].Players, attrs)
	}
	return aggs, nil
}

// OnOffDifferential returns a player's on/off split in scope. A player who
// appeared in scope always gets a record; with no off-court sample its
// confidence is none.
func (s *Service) OnOffDifferential(ctx context.Context, playerID string, scope model.Scope) (*model.PlayerOnOffAggregate, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, crerr.Wrap(ErrInvalidInput, "player id is required")
	}
	agg, err := s.store.PlayerOnOff(ctx, scope, playerID)
	if err != nil {
		return nil, crerr.Wrap(err, "get on/off")
	}
	if agg == nil {
		games, err := s.store.PlayerGames(ctx, scope, playerID)
		if err != nil {
			return nil, crerr.Wrap(err, "get player games")
		}
		if len(games) == 0 {
			return nil, crerr.Wrapf(ErrPlayerNotFound, "player %s in %s", playerID, scope)
		}
		agg = &model.PlayerOnOffAggregate{PlayerID: playerID, Scope: scope, Games: len(games)}
	}
	agg.Confidence = s.thresholds.OnOffConfidence(agg)
	return agg, nil
}

// ListOnOff returns on/off splits in scope with confidence classes set.
func (s *Service) ListOnOff(ctx context.Context, scope model.Scope, minOnPossessions, limit int) ([]model.PlayerOnOffAggregate, error) {
	aggs, err := s.store.PlayerOnOffAggregates(ctx, scope, minOnPossessions, limit)
	if err != nil {
		return nil, crerr.Wrap(err, "list on/off")
	}
	for i := range aggs {
		aggs[i].Confidence = s.thresholds.OnOffConfidence(&aggs[i])
	}
	return aggs, nil
}

// Stints returns a player's per-event stint records for a game, in event
// order, together with the collapsed stints.
func (s *Service) Stints(ctx context.Context, playerID, gameID string) ([]model.PlayerStintRecord, []model.Stint, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, nil, err
	}
	recs, err := s.store.PlayerStints(ctx, gameID, strings.TrimSpace(playerID))
	if err != nil {
		return nil, nil, crerr.Wrap(err, "get stints")
	}
	if len(recs) == 0 {
		return nil, nil, crerr.Wrapf(ErrPlayerNotFound, "player %s in game %s", playerID, gameID)
	}
	return recs, stint.Collapse(recs), nil
}

// PossessionIntervals slices a game's possessions into windows of size.
func (s *Service) PossessionIntervals(ctx context.Context, gameID string, size int) ([]model.PossessionWindow, error) {
	if !validIntervalSize(size) {
		return nil, crerr.Wrapf(ErrInvalidIntervalSize, "got %d", size)
	}
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	poss, err := s.store.Possessions(ctx, gameID)
	if err != nil {
		return nil, crerr.Wrap(err, "get possessions")
	}
	return aggregator.Windows(gameID, poss, size), nil
}

// VerifyGame recomputes a complete game's lineup and on/off totals from its
// possessions and reports each stored game-scope aggregate that disagrees.
// An empty result means the stored views match the facts.
func (s *Service) VerifyGame(ctx context.Context, gameID string) ([]string, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	poss, err := s.store.Possessions(ctx, gameID)
	if err != nil {
		return nil, crerr.Wrap(err, "get possessions")
	}
	scope := model.GameScope(gameID)
	stored, err := s.store.LineupAggregates(ctx, scope, storage.LineupFilter{})
	if err != nil {
		return nil, crerr.Wrap(err, "get lineup aggregates")
	}

	var problems []string
	want := aggregator.LineupTotals(poss)
	players := make(map[model.LineupID][5]string, len(stored))
	teamOf := map[string]string{}
	for _, a := range stored {
		players[a.LineupID] = a.Players
		for _, p := range a.Players {
			teamOf[p] = a.TeamID
		}
		w, ok := want[a.LineupID]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("lineup %s: stored without possessions", a.LineupID))
		case *w != a.RatingSplit:
			problems = append(problems, fmt.Sprintf("lineup %s: stored %+v, recomputed %+v", a.LineupID, a.RatingSplit, *w))
		}
		delete(want, a.LineupID)
	}
	missing := make([]string, 0, len(want))
	for id := range want {
		missing = append(missing, string(id))
	}
	sort.Strings(missing)
	for _, id := range missing {
		problems = append(problems, fmt.Sprintf("lineup %s: not stored", id))
	}

	onoff, err := s.store.PlayerOnOffAggregates(ctx, scope, 0, 0)
	if err != nil {
		return nil, crerr.Wrap(err, "get on/off aggregates")
	}
	for _, a := range onoff {
		team, ok := teamOf[a.PlayerID]
		if !ok {
			games, err := s.store.PlayerGames(ctx, scope, a.PlayerID)
			if err != nil {
				return nil, crerr.Wrap(err, "get player games")
			}
			if len(games) == 0 {
				problems = append(problems, fmt.Sprintf("player %s: on/off stored without appearance", a.PlayerID))
				continue
			}
			team = games[0].TeamID
		}
		on, off := aggregator.OnOffTotals(poss, a.PlayerID, team, players)
		var storedOff model.RatingSplit
		if a.Off != nil {
			storedOff = *a.Off
		}
		if on != a.On || off != storedOff {
			problems = append(problems, fmt.Sprintf("player %s: stored on %+v off %+v, recomputed on %+v off %+v",
				a.PlayerID, a.On, storedOff, on, off))
		}
	}
	return problems, nil
}

func validIntervalSize(size int) bool {
	for _, s := range IntervalSizes {
		if s == size {
			return true
		}
	}
	return false
}

func (s *Service) requireGame(ctx context.Context, gameID string) error {
	g, err := s.GameStatus(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != model.StatusComplete {
		return crerr.Wrapf(ErrGameNotFound, "game %s is %s", gameID, g.Status)
	}
	return nil
}

// GameStatus returns a game's ingestion status record.
func (s *Service) GameStatus(ctx context.Context, gameID string) (*model.Game, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, crerr.Wrap(ErrInvalidInput, "game id is required")
	}
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, crerr.Wrap(err, "get game")
	}
	if g == nil {
		return nil, crerr.Wrapf(ErrGameNotFound, "game %s", gameID)
	}
	return g, nil
}

func (s *Service) ListGames(ctx context.Context) ([]model.Game, error) {
	return s.store.ListGames(ctx)
}

// PendingGames lists games a resumed batch has to ingest again.
func (s *Service) PendingGames(ctx context.Context) ([]model.Game, error) {
	return s.store.PendingGames(ctx)
}

// Rebuild recomputes the stored aggregates of each scope.
func (s *Service) Rebuild(ctx context.Context, scopes ...model.Scope) error {
	for _, scope := range scopes {
		if err := s.store.RebuildAggregates(ctx, scope); err != nil {
			return crerr.Wrapf(err, "rebuild %s", scope)
		}
	}
	return nil
}
