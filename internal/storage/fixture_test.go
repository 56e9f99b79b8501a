package storage

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/model"
)

func openMemDB(t testing.TB) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err, "open in-memory db")
	t.Cleanup(func() { db.Close() })
	return db
}

func mustLineup(t testing.TB, team string, players ...string) model.Lineup {
	t.Helper()
	l, err := lineup.Resolve(team, players)
	require.NoError(t, err)
	return l
}

type fixture struct {
	home, homeAlt, away model.Lineup
	facts               *model.GameFacts
}

// newFixture builds one game: the home team swaps h1 for h6 halfway, the
// away team never substitutes.
//
//	#1 H X  vs A  2 pts
//	#2 A    vs X  3 pts
//	#3 H Y  vs A  0 pts
//	#4 A    vs Y  2 pts
func newFixture(t testing.TB, gameID, season, runID string) *fixture {
	t.Helper()
	f := &fixture{
		home:    mustLineup(t, "H", "h1", "h2", "h3", "h4", "h5"),
		homeAlt: mustLineup(t, "H", "h2", "h3", "h4", "h5", "h6"),
		away:    mustLineup(t, "A", "a1", "a2", "a3", "a4", "a5"),
	}
	poss := func(n int, off string, offL, defL model.Lineup, pts int) model.PossessionRecord {
		def := "A"
		if off == "A" {
			def = "H"
		}
		return model.PossessionRecord{
			GameID: gameID, Number: n, Period: 1,
			StartSeq: n*2 - 1, EndSeq: n * 2,
			StartElapsed: float64(n-1) * 20, EndElapsed: float64(n) * 20,
			Outcome: model.OutcomeMadeShot, Points: pts,
			OffenseTeam: off, DefenseTeam: def,
			OffenseLineup: offL.ID, DefenseLineup: defL.ID,
		}
	}
	rest := 40.0
	var players []model.PlayerGame
	for _, p := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		players = append(players, model.PlayerGame{GameID: gameID, PlayerID: p, TeamID: "H", Stints: 1})
	}
	for _, p := range f.away.Players {
		players = append(players, model.PlayerGame{GameID: gameID, PlayerID: p, TeamID: "A", Stints: 1})
	}
	f.facts = &model.GameFacts{
		Game: model.Game{
			GameID: gameID, Season: season, HomeTeamID: "H", AwayTeamID: "A",
			RunID: runID, Events: 8,
		},
		Lineups: []model.Lineup{f.home, f.homeAlt, f.away},
		Snapshots: []model.LineupSnapshot{
			{GameID: gameID, Seq: 1, TeamID: "A", LineupID: f.away.ID, Possession: 1},
			{GameID: gameID, Seq: 1, TeamID: "H", LineupID: f.home.ID, HasPossession: true, Possession: 1},
		},
		Stints: []model.PlayerStintRecord{
			{GameID: gameID, Seq: 1, PlayerID: "h1", TeamID: "H", Elapsed: 0, OnCourt: true, StintID: gameID + ":h1:1", StintSeq: 1},
			{GameID: gameID, Seq: 5, PlayerID: "h1", TeamID: "H", Elapsed: 40, OnCourt: false, StintSeq: 1, SecondsPlayed: 40},
			{GameID: gameID, Seq: 8, PlayerID: "h1", TeamID: "H", Elapsed: 80, OnCourt: true, StintID: gameID + ":h1:2", StintSeq: 2, SecondsPlayed: 40, RestSeconds: &rest},
		},
		Possessions: []model.PossessionRecord{
			poss(1, "H", f.home, f.away, 2),
			poss(2, "A", f.away, f.home, 3),
			poss(3, "H", f.homeAlt, f.away, 0),
			poss(4, "A", f.away, f.homeAlt, 2),
		},
		Flags:   []model.EventFlag{{GameID: gameID, Seq: 3, Reason: "unknown_event_kind", RawKind: "challenge"}},
		Players: players,
	}
	return f
}

func ingestFixture(t testing.TB, db *DB, f *fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.ClaimGame(ctx, f.facts.Game, f.facts.Game.RunID, false))
	require.NoError(t, db.CommitGame(ctx, f.facts))
}

// randomFacts generates a game of n possessions between two teams that
// rotate through a small pool of lineups.
func randomFacts(t testing.TB, rng *rand.Rand, gameID, season string, n int) *model.GameFacts {
	t.Helper()
	pool := func(team string) []model.Lineup {
		var out []model.Lineup
		for i := 0; i < 4; i++ {
			ps := make([]string, 5)
			for j := range ps {
				ps[j] = fmt.Sprintf("%s%d", team, (i+j)%8)
			}
			out = append(out, mustLineup(t, team, ps...))
		}
		return out
	}
	homePool, awayPool := pool("H"), pool("A")
	facts := &model.GameFacts{
		Game:    model.Game{GameID: gameID, Season: season, HomeTeamID: "H", AwayTeamID: "A", RunID: "run-" + gameID},
		Lineups: append(append([]model.Lineup{}, homePool...), awayPool...),
	}
	for i := 0; i < 8; i++ {
		facts.Players = append(facts.Players,
			model.PlayerGame{GameID: gameID, PlayerID: fmt.Sprintf("H%d", i), TeamID: "H"},
			model.PlayerGame{GameID: gameID, PlayerID: fmt.Sprintf("A%d", i), TeamID: "A"},
		)
	}
	for i := 1; i <= n; i++ {
		h, a := homePool[rng.Intn(len(homePool))], awayPool[rng.Intn(len(awayPool))]
		p := model.PossessionRecord{
			GameID: gameID, Number: i, Period: 1 + (i-1)*4/n,
			StartSeq: i, EndSeq: i, Outcome: model.OutcomeOther,
			Points:      []int{0, 0, 1, 2, 2, 3}[rng.Intn(6)],
			OffenseTeam: "H", DefenseTeam: "A", OffenseLineup: h.ID, DefenseLineup: a.ID,
		}
		if i%2 == 0 {
			p.OffenseTeam, p.DefenseTeam = "A", "H"
			p.OffenseLineup, p.DefenseLineup = a.ID, h.ID
		}
		facts.Possessions = append(facts.Possessions, p)
	}
	return facts
}
