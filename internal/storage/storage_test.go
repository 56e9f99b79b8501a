package storage

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-lineup-metrics/internal/aggregator"
	"github.com/pable/go-lineup-metrics/internal/model"
)

func TestOpen_MigratesTwice(t *testing.T) {
	path := t.TempDir() + "/lineups.db"
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an up-to-date store is a no-op migration.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	games, err := db.ListGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestCommitGameAndReadBack(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f := newFixture(t, "g1", "2024", "run-1")
	ingestFixture(t, db, f)

	g, err := db.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, model.StatusComplete, g.Status)
	assert.Equal(t, "run-1", g.RunID)
	assert.Equal(t, 1, g.Attempts)
	assert.Equal(t, 4, g.Possessions)
	assert.Equal(t, 1, g.Flags)
	assert.False(t, g.FinishedAt.IsZero())

	poss, err := db.Possessions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, poss, 4)
	assert.Equal(t, f.home.ID, poss[0].OffenseLineup)
	assert.Equal(t, 3, poss[1].Points)

	stints, err := db.PlayerStints(ctx, "g1", "h1")
	require.NoError(t, err)
	require.Len(t, stints, 3)
	assert.Nil(t, stints[0].RestSeconds)
	assert.False(t, stints[1].OnCourt)
	require.NotNil(t, stints[2].RestSeconds)
	assert.InDelta(t, 40.0, *stints[2].RestSeconds, 1e-9)

	snaps, err := db.Snapshots(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, f.away.Players, snaps[0].Players)
	assert.True(t, snaps[1].HasPossession)

	flags, err := db.Flags(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "challenge", flags[0].RawKind)

	l, err := db.GetLineup(ctx, f.homeAlt.ID)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, f.homeAlt.Players, l.Players)

	missing, err := db.GetGame(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCommitGame_ReplacesPreviousFacts(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f := newFixture(t, "g1", "2024", "run-1")
	ingestFixture(t, db, f)

	again := newFixture(t, "g1", "2024", "run-2")
	again.facts.Possessions = again.facts.Possessions[:3]
	ingestFixture(t, db, again)

	poss, err := db.Possessions(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, poss, 3)

	g, err := db.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Attempts)
	assert.Equal(t, "run-2", g.RunID)
}

func TestClaimGame_SingleOwner(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f := newFixture(t, "g1", "2024", "run-1")

	require.NoError(t, db.ClaimGame(ctx, f.facts.Game, "run-1", false))

	err := db.ClaimGame(ctx, f.facts.Game, "run-2", false)
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrGameInProgress))

	require.NoError(t, db.ClaimGame(ctx, f.facts.Game, "run-2", true))

	// run-1 lost the game; its commit must not land.
	err = db.CommitGame(ctx, f.facts)
	assert.True(t, crerr.Is(err, ErrNotOwner))
	poss, err := db.Possessions(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, poss)
}

func TestPendingGames(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	ingestFixture(t, db, newFixture(t, "g1", "2024", "run-1"))

	g2 := newFixture(t, "g2", "2024", "run-2").facts.Game
	require.NoError(t, db.ClaimGame(ctx, g2, "run-2", false))
	require.NoError(t, db.FailGame(ctx, "g2", "run-2", errors.New("bad lineup")))

	g3 := newFixture(t, "g3", "2024", "run-3").facts.Game
	require.NoError(t, db.ClaimGame(ctx, g3, "run-3", false))

	pending, err := db.PendingGames(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "g2", pending[0].GameID)
	assert.Equal(t, model.StatusFailed, pending[0].Status)
	assert.Equal(t, "bad lineup", pending[0].Error)
	assert.Equal(t, "g3", pending[1].GameID)
	assert.Equal(t, model.StatusInProgress, pending[1].Status)
}

func TestCommitGame_CancelledWritesNothing(t *testing.T) {
	db := openMemDB(t)
	f := newFixture(t, "g1", "2024", "run-1")
	require.NoError(t, db.ClaimGame(context.Background(), f.facts.Game, "run-1", false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, db.CommitGame(ctx, f.facts))

	poss, err := db.Possessions(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, poss)
	g, err := db.GetGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, g.Status)
}

func TestRebuildAggregates(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f := newFixture(t, "g1", "2024", "run-1")
	ingestFixture(t, db, f)

	scope := model.GameScope("g1")
	require.NoError(t, db.RebuildAggregates(ctx, scope))

	x, err := db.LineupAggregate(ctx, scope, f.home.ID)
	require.NoError(t, err)
	require.NotNil(t, x)
	assert.Equal(t, model.RatingSplit{OffPossessions: 1, DefPossessions: 1, PointsFor: 2, PointsAgainst: 3}, x.RatingSplit)
	assert.Equal(t, "H", x.TeamID)
	assert.Equal(t, 1, x.Games)

	a, err := db.LineupAggregate(ctx, scope, f.away.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RatingSplit{OffPossessions: 2, DefPossessions: 2, PointsFor: 5, PointsAgainst: 2}, a.RatingSplit)

	h1, err := db.PlayerOnOff(ctx, scope, "h1")
	require.NoError(t, err)
	require.NotNil(t, h1)
	assert.Equal(t, model.RatingSplit{OffPossessions: 1, DefPossessions: 1, PointsFor: 2, PointsAgainst: 3}, h1.On)
	require.NotNil(t, h1.Off)
	assert.Equal(t, model.RatingSplit{OffPossessions: 1, DefPossessions: 1, PointsFor: 0, PointsAgainst: 2}, *h1.Off)

	h2, err := db.PlayerOnOff(ctx, scope, "h2")
	require.NoError(t, err)
	assert.Nil(t, h2.Off)
	assert.Equal(t, 4, h2.On.Possessions())

	// Idempotent: a second rebuild yields identical rows.
	before, err := db.LineupAggregates(ctx, scope, LineupFilter{})
	require.NoError(t, err)
	require.NoError(t, db.RebuildAggregates(ctx, scope))
	after, err := db.LineupAggregates(ctx, scope, LineupFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, after, 3)

	none, err := db.LineupAggregate(ctx, model.GameScope("g2"), f.home.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRebuildAggregates_CountsCompleteGamesOnly(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f1 := newFixture(t, "g1", "2024", "run-1")
	f2 := newFixture(t, "g2", "2024", "run-2")
	ingestFixture(t, db, f1)
	ingestFixture(t, db, f2)

	// A later run of g2 fails; its earlier facts stay on disk.
	require.NoError(t, db.ClaimGame(ctx, f2.facts.Game, "run-3", false))
	require.NoError(t, db.FailGame(ctx, "g2", "run-3", errors.New("truncated stream")))
	poss, err := db.Possessions(ctx, "g2")
	require.NoError(t, err)
	require.Len(t, poss, 4)

	for _, scope := range []model.Scope{model.AllScope(), model.SeasonScope("2024"), model.GameScope("g2")} {
		require.NoError(t, db.RebuildAggregates(ctx, scope))
	}
	for _, scope := range []model.Scope{model.AllScope(), model.SeasonScope("2024")} {
		a, err := db.LineupAggregate(ctx, scope, f1.away.ID)
		require.NoError(t, err)
		require.NotNil(t, a, scope.String())
		assert.Equal(t, 1, a.Games, scope.String())
		assert.Equal(t, 4, a.Possessions(), scope.String())

		h1, err := db.PlayerOnOff(ctx, scope, "h1")
		require.NoError(t, err)
		require.NotNil(t, h1)
		assert.Equal(t, 1, h1.Games, scope.String())
	}
	none, err := db.LineupAggregate(ctx, model.GameScope("g2"), f2.away.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	naive, err := db.NaiveLineupAggregates(ctx, model.AllScope())
	require.NoError(t, err)
	for _, a := range naive {
		assert.Equal(t, 1, a.Games, string(a.LineupID))
	}
	games, err := db.PlayerGames(ctx, model.AllScope(), "h1")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "g1", games[0].GameID)
}

func TestLineupAggregates_Filter(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	f := newFixture(t, "g1", "2024", "run-1")
	ingestFixture(t, db, f)
	require.NoError(t, db.RebuildAggregates(ctx, model.AllScope()))

	home, err := db.LineupAggregates(ctx, model.AllScope(), LineupFilter{TeamID: "H"})
	require.NoError(t, err)
	assert.Len(t, home, 2)

	withH1, err := db.LineupAggregates(ctx, model.AllScope(), LineupFilter{PlayerID: "h1"})
	require.NoError(t, err)
	require.Len(t, withH1, 1)
	assert.Equal(t, f.home.ID, withH1[0].LineupID)

	top, err := db.LineupAggregates(ctx, model.AllScope(), LineupFilter{MinPossessions: 3, Limit: 5})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, f.away.ID, top[0].LineupID)
}

func TestGroupedMatchesNaive(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	for _, id := range []string{"g1", "g2", "g3"} {
		facts := randomFacts(t, rng, id, "2024", 120)
		require.NoError(t, db.ClaimGame(ctx, facts.Game, facts.Game.RunID, false))
		require.NoError(t, db.CommitGame(ctx, facts))
	}

	for _, scope := range []model.Scope{model.AllScope(), model.SeasonScope("2024"), model.GameScope("g2")} {
		require.NoError(t, db.RebuildAggregates(ctx, scope))
		grouped, err := db.LineupAggregates(ctx, scope, LineupFilter{})
		require.NoError(t, err)
		naive, err := db.NaiveLineupAggregates(ctx, scope)
		require.NoError(t, err)

		byID := map[model.LineupID]model.LineupAggregate{}
		for _, a := range naive {
			byID[a.LineupID] = a
		}
		require.Len(t, grouped, len(naive), scope.String())
		for _, g := range grouped {
			n, ok := byID[g.LineupID]
			require.True(t, ok, "%s missing from naive", g.LineupID)
			assert.Equal(t, n.RatingSplit, g.RatingSplit, scope.String())
			assert.Equal(t, n.Games, g.Games, scope.String())
		}
	}
}

func TestGroupedMatchesInMemoryTotals(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))
	facts := randomFacts(t, rng, "g1", "2024", 150)
	require.NoError(t, db.ClaimGame(ctx, facts.Game, facts.Game.RunID, false))
	require.NoError(t, db.CommitGame(ctx, facts))

	scope := model.GameScope("g1")
	require.NoError(t, db.RebuildAggregates(ctx, scope))

	lineups, err := db.LineupAggregates(ctx, scope, LineupFilter{})
	require.NoError(t, err)
	want := aggregator.LineupTotals(facts.Possessions)
	require.Len(t, lineups, len(want))
	players := map[model.LineupID][5]string{}
	for _, a := range lineups {
		w, ok := want[a.LineupID]
		require.True(t, ok, string(a.LineupID))
		assert.Equal(t, *w, a.RatingSplit, string(a.LineupID))
		players[a.LineupID] = a.Players
	}

	onoff, err := db.PlayerOnOffAggregates(ctx, scope, 0, 0)
	require.NoError(t, err)
	require.Len(t, onoff, len(facts.Players))
	teamOf := map[string]string{}
	for _, p := range facts.Players {
		teamOf[p.PlayerID] = p.TeamID
	}
	for _, a := range onoff {
		on, off := aggregator.OnOffTotals(facts.Possessions, a.PlayerID, teamOf[a.PlayerID], players)
		assert.Equal(t, on, a.On, a.PlayerID)
		if a.Off == nil {
			assert.Zero(t, off.Possessions(), a.PlayerID)
			continue
		}
		assert.Equal(t, off, *a.Off, a.PlayerID)
	}
}

func TestPlayersRoundTrip(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	age, height := 27.0, 80.0
	require.NoError(t, db.UpsertPlayers(ctx, []model.PlayerAttributes{
		{PlayerID: "p1", Name: "One", Age: &age, HeightIn: &height},
		{PlayerID: "p2", Name: "Two"},
	}))

	got, err := db.PlayerAttributes(ctx, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got["p1"].Age)
	assert.Equal(t, 27.0, *got["p1"].Age)
	assert.Nil(t, got["p1"].WeightLb)
	assert.Nil(t, got["p2"].Age)

	all, err := db.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlayerGames_Scoped(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	ingestFixture(t, db, newFixture(t, "g1", "2023", "run-1"))
	ingestFixture(t, db, newFixture(t, "g2", "2024", "run-2"))

	all, err := db.PlayerGames(ctx, model.AllScope(), "h1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	season, err := db.PlayerGames(ctx, model.SeasonScope("2024"), "h1")
	require.NoError(t, err)
	require.Len(t, season, 1)
	assert.Equal(t, "g2", season[0].GameID)
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	ingestFixture(t, db, newFixture(t, "g1", "2024", "run-1"))

	cols, rows, err := db.QueryRaw(context.Background(),
		"SELECT number, points, NULL AS n FROM possessions WHERE game_id = 'g1' ORDER BY number")
	require.NoError(t, err)
	assert.Equal(t, []string{"number", "points", "n"}, cols)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "3", "NULL"}, rows[1])

	_, _, err = db.QueryRaw(context.Background(), "SELECT * FROM nope")
	assert.Error(t, err)
}
