package query

import (
	"context"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-lineup-metrics/internal/aggregator"
	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/ingest"
	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/storage"
)

// benchGame is one period in which h6 replaces h1 after two possessions:
//
//	#1 [1]    H made 2        starters
//	#2 [2]    A made 2        vs starters
//	#3 [3,4]  H sub, made 3   bench
//	#4 [5,6]  A miss, H dreb  vs bench
//	#5 [7]    end of period   bench on offense
func benchGame(gameID, season string) ingest.GameInput {
	starters := []string{"h1", "h2", "h3", "h4", "h5"}
	bench := []string{"h6", "h2", "h3", "h4", "h5"}
	away := []string{"a1", "a2", "a3", "a4", "a5"}
	var hs, as int
	var events []model.Event
	add := func(kind model.EventKind, team string, pts int, home []string) {
		if team == "H" {
			hs += pts
		} else if team == "A" {
			as += pts
		}
		seq := len(events) + 1
		events = append(events, model.Event{
			GameID: gameID, Season: season, Seq: seq, Period: 1, Elapsed: float64(seq) * 10,
			Kind: kind, RawKind: kind.String(), TeamID: team, Points: pts,
			HomeTeamID: "H", AwayTeamID: "A", HomeLineup: home, AwayLineup: away,
			HomeScore: hs, AwayScore: as,
		})
	}
	add(model.KindMadeShot, "H", 2, starters)
	add(model.KindMadeShot, "A", 2, starters)
	add(model.KindSubstitution, "H", 0, bench)
	add(model.KindMadeShot, "H", 3, bench)
	add(model.KindMissedShot, "A", 0, bench)
	add(model.KindDefensiveRebound, "H", 0, bench)
	add(model.KindEndOfPeriod, "", 0, bench)
	return ingest.GameInput{GameID: gameID, Events: events}
}

func ptr(v float64) *float64 { return &v }

func newService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res := ingest.New(db).Ingest(ctx, benchGame("g1", "2024"))
	require.NoError(t, res.Err)
	return NewService(db, aggregator.Thresholds{Low: 2, High: 4}), db
}

func mustID(t *testing.T, players ...string) model.LineupID {
	t.Helper()
	id, err := lineup.ID(players)
	require.NoError(t, err)
	return id
}

func TestLineupIdentity(t *testing.T) {
	s := NewService(nil, aggregator.DefaultThresholds)
	a, err := s.LineupIdentity([]string{"h5", "h4", "h3", "h2", "h1"})
	require.NoError(t, err)
	assert.Equal(t, mustID(t, "h1", "h2", "h3", "h4", "h5"), a)

	_, err = s.LineupIdentity([]string{"h1", "h2"})
	assert.True(t, crerr.Is(err, lineup.ErrInvalidCardinality))
}

func TestLineupStats(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t)
	require.NoError(t, db.UpsertPlayers(ctx, []model.PlayerAttributes{
		{PlayerID: "h1", Age: ptr(20), HeightIn: ptr(80)},
		{PlayerID: "h2", Age: ptr(22), HeightIn: ptr(78)},
		{PlayerID: "h3", Age: ptr(24)},
		{PlayerID: "h4", Age: ptr(26), HeightIn: ptr(75)},
		{PlayerID: "h5", Age: ptr(28), HeightIn: ptr(82)},
	}))

	id := mustID(t, "h1", "h2", "h3", "h4", "h5")
	agg, err := s.LineupStats(ctx, string(id), model.AllScope())
	require.NoError(t, err)
	assert.Equal(t, 1, agg.OffPossessions)
	assert.Equal(t, 1, agg.DefPossessions)
	assert.Equal(t, 2, agg.PointsFor)
	assert.Equal(t, 2, agg.PointsAgainst)
	net, ok := agg.Net()
	require.True(t, ok)
	assert.InDelta(t, 0.0, net, 1e-9)

	require.NotNil(t, agg.Composite.AvgAge)
	assert.InDelta(t, 24.0, *agg.Composite.AvgAge, 1e-9)
	assert.Nil(t, agg.Composite.AvgHeightIn)
	assert.Nil(t, agg.Composite.AvgWeightLb)
}

func TestLineupStats_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	_, err := s.LineupStats(ctx, "not-a-lineup", model.AllScope())
	assert.True(t, crerr.Is(err, ErrMalformedLineup))
	assert.True(t, errkind.IsQuery(err))

	_, err = s.LineupStats(ctx, string(mustID(t, "x1", "x2", "x3", "x4", "x5")), model.AllScope())
	assert.True(t, crerr.Is(err, ErrLineupNotFound))

	// Known lineup, no possessions in that season.
	agg, err := s.LineupStats(ctx, string(mustID(t, "h1", "h2", "h3", "h4", "h5")), model.SeasonScope("1999"))
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Possessions())
	assert.Equal(t, "H", agg.TeamID)
	_, ok := agg.ORtg()
	assert.False(t, ok)
}

func TestListLineups(t *testing.T) {
	s, _ := newService(t)
	aggs, err := s.ListLineups(context.Background(), model.GameScope("g1"), LineupFilter{TeamID: "H"})
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, mustID(t, "h2", "h3", "h4", "h5", "h6"), aggs[0].LineupID)
	assert.Equal(t, 3, aggs[0].Possessions())
}

func TestOnOffDifferential(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	h1, err := s.OnOffDifferential(ctx, "h1", model.AllScope())
	require.NoError(t, err)
	assert.Equal(t, model.RatingSplit{OffPossessions: 1, DefPossessions: 1, PointsFor: 2, PointsAgainst: 2}, h1.On)
	require.NotNil(t, h1.Off)
	assert.Equal(t, model.RatingSplit{OffPossessions: 2, DefPossessions: 1, PointsFor: 3, PointsAgainst: 0}, *h1.Off)
	assert.Equal(t, model.ConfidenceMedium, h1.Confidence)
	diff, ok := h1.NetDiff()
	require.True(t, ok)
	assert.InDelta(t, -150.0, diff, 1e-9)

	// a1 never sat.
	a1, err := s.OnOffDifferential(ctx, "a1", model.AllScope())
	require.NoError(t, err)
	assert.True(t, a1.NoOffSample())
	assert.Equal(t, model.ConfidenceNone, a1.Confidence)
	_, ok = a1.NetDiff()
	assert.False(t, ok)

	_, err = s.OnOffDifferential(ctx, "nobody", model.AllScope())
	assert.True(t, crerr.Is(err, ErrPlayerNotFound))

	_, err = s.OnOffDifferential(ctx, "h1", model.SeasonScope("1999"))
	assert.True(t, crerr.Is(err, ErrPlayerNotFound))

	_, err = s.OnOffDifferential(ctx, "  ", model.AllScope())
	assert.True(t, crerr.Is(err, ErrInvalidInput))
}

func TestListOnOff(t *testing.T) {
	s, _ := newService(t)
	aggs, err := s.ListOnOff(context.Background(), model.AllScope(), 0, 0)
	require.NoError(t, err)
	require.Len(t, aggs, 11)
	for _, a := range aggs {
		if a.PlayerID == "a1" {
			assert.Equal(t, model.ConfidenceNone, a.Confidence)
		}
	}
}

func TestStints(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	recs, stints, err := s.Stints(ctx, "h1", "g1")
	require.NoError(t, err)
	require.Len(t, recs, 7)
	for i := 1; i < len(recs); i++ {
		assert.Less(t, recs[i-1].Seq, recs[i].Seq)
	}
	require.Len(t, stints, 1)
	assert.Equal(t, 1, stints[0].StartSeq)
	assert.Equal(t, 2, stints[0].EndSeq)
	assert.InDelta(t, 10.0, stints[0].Seconds(), 1e-9)

	_, _, err = s.Stints(ctx, "h1", "nope")
	assert.True(t, crerr.Is(err, ErrGameNotFound))
	_, _, err = s.Stints(ctx, "zz", "g1")
	assert.True(t, crerr.Is(err, ErrPlayerNotFound))
}

func TestPossessionIntervals(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	windows, err := s.PossessionIntervals(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	w := windows[0]
	assert.True(t, w.Partial)
	assert.Equal(t, 1, w.FirstPossession)
	assert.Equal(t, 5, w.LastPossession)
	require.Len(t, w.Teams, 2)
	assert.Equal(t, "A", w.Teams[0].TeamID)
	assert.Equal(t, 2, w.Teams[0].PointsFor)
	assert.Equal(t, 5, w.Teams[1].PointsFor)

	for _, bad := range []int{0, 7, 20, 1000} {
		_, err := s.PossessionIntervals(ctx, "g1", bad)
		assert.True(t, crerr.Is(err, ErrInvalidIntervalSize), "size %d", bad)
	}
	_, err = s.PossessionIntervals(ctx, "missing", 25)
	assert.True(t, crerr.Is(err, ErrGameNotFound))
}

func TestGameStatusAndRebuild(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	g, err := s.GameStatus(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, g.Status)
	assert.Equal(t, 5, g.Possessions)

	_, err = s.GameStatus(ctx, "g9")
	assert.True(t, crerr.Is(err, ErrGameNotFound))

	pending, err := s.PendingGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)

	before, err := s.LineupStats(ctx, string(mustID(t, "h1", "h2", "h3", "h4", "h5")), model.AllScope())
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(ctx, model.GameScope("g1"), model.SeasonScope("2024"), model.AllScope()))
	after, err := s.LineupStats(ctx, string(mustID(t, "h1", "h2", "h3", "h4", "h5")), model.AllScope())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// skewedStore reports one extra point for the first stored lineup.
type skewedStore struct {
	*storage.DB
}

func (s skewedStore) LineupAggregates(ctx context.Context, scope model.Scope, f storage.LineupFilter) ([]model.LineupAggregate, error) {
	aggs, err := s.DB.LineupAggregates(ctx, scope, f)
	if len(aggs) > 0 {
		aggs[0].PointsFor++
	}
	return aggs, err
}

func TestVerifyGame(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t)

	problems, err := s.VerifyGame(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, problems)

	skewed := NewService(skewedStore{db}, aggregator.DefaultThresholds)
	problems, err = skewed.VerifyGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "recomputed")

	_, err = s.VerifyGame(ctx, "g9")
	assert.True(t, crerr.Is(err, ErrGameNotFound))
}

func TestErrorClasses(t *testing.T) {
	err := crerr.Wrapf(ErrPlayerNotFound, "player %s", "p1")
	assert.True(t, crerr.Is(err, ErrPlayerNotFound))
	assert.False(t, crerr.Is(err, ErrLineupNotFound))
	assert.False(t, crerr.Is(err, ErrGameNotFound))
	assert.False(t, crerr.Is(err, ErrMalformedLineup))
	assert.True(t, errkind.IsQuery(err))
	assert.False(t, errkind.IsConfig(err))

	err = crerr.Wrapf(ErrInvalidIntervalSize, "got %d", 7)
	assert.True(t, errkind.IsQuery(err))
	assert.True(t, errkind.IsConfig(err))
	assert.False(t, crerr.Is(err, ErrInvalidInput))
}
