// Package ingesttest writes plausible play-by-play streams for tests.
package ingesttest

import (
	"fmt"
	"strings"

	"github.com/pable/go-lineup-metrics/internal/model"
)

// Builder appends events of one game: H (h1..h5) hosts A (a1..a5). Every
// event advances the game clock by 12 seconds.
type Builder struct {
	GameID, Season string
	Events         []model.Event

	seq        int
	elapsed    float64
	period     int
	home, away []string
	hs, as     int
}

func NewGame(gameID, season string) *Builder {
	return &Builder{
		GameID: gameID,
		Season: season,
		period: 1,
		home:   []string{"h1", "h2", "h3", "h4", "h5"},
		away:   []string{"a1", "a2", "a3", "a4", "a5"},
	}
}

func (b *Builder) Add(kind model.EventKind, team string, points int) *Builder {
	b.seq++
	b.elapsed += 12
	switch team {
	case "H":
		b.hs += points
	case "A":
		b.as += points
	}
	b.Events = append(b.Events, model.Event{
		GameID:     b.GameID,
		Season:     b.Season,
		Seq:        b.seq,
		Period:     b.period,
		Elapsed:    b.elapsed,
		Kind:       kind,
		RawKind:    kind.String(),
		TeamID:     team,
		Points:     points,
		HomeTeamID: "H",
		AwayTeamID: "A",
		HomeLineup: append([]string(nil), b.home...),
		AwayLineup: append([]string(nil), b.away...),
		HomeScore:  b.hs,
		AwayScore:  b.as,
	})
	return b
}

// Sub swaps out for in and records a substitution event.
func (b *Builder) Sub(team, out, in string) *Builder {
	players := b.home
	if team == "A" {
		players = b.away
	}
	for i, p := range players {
		if p == out {
			players[i] = in
		}
	}
	return b.Add(model.KindSubstitution, team, 0)
}

func (b *Builder) EndPeriod() *Builder {
	b.Add(model.KindEndOfPeriod, "", 0)
	b.period++
	return b
}

// Filler appends n possessions alternating H made twos and A misses
// rebounded by H.
func (b *Builder) Filler(n int) *Builder {
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			b.Add(model.KindMadeShot, "H", 2)
		} else {
			b.Add(model.KindMissedShot, "A", 0).Add(model.KindDefensiveRebound, "H", 0)
		}
	}
	return b
}

// Scripted is a two-period reference game:
//
//	#1 [1]     H made 2
//	#2 [2,3]   A miss, H defensive rebound
//	#3 [4,5]   H sub h1->h6, H made 3
//	#4 [6]     end of period 1
//	#5 [7,8]   start of period 2, A turnover
//	#6 [9,10]  H sub h6->h1, H made 2
//	#7 [11]    end of period 2
func Scripted(gameID string) *Builder {
	return NewGame(gameID, "2024").
		Add(model.KindMadeShot, "H", 2).
		Add(model.KindMissedShot, "A", 0).
		Add(model.KindDefensiveRebound, "H", 0).
		Sub("H", "h1", "h6").
		Add(model.KindMadeShot, "H", 3).
		EndPeriod().
		Add(model.KindStartOfPeriod, "", 0).
		Add(model.KindTurnover, "A", 0).
		Sub("H", "h6", "h1").
		Add(model.KindMadeShot, "H", 2).
		EndPeriod()
}

// JSONLine renders ev in the ingestion wire format.
func JSONLine(ev model.Event) string {
	quote := func(ps []string) string {
		q := make([]string, len(ps))
		for i, p := range ps {
			q[i] = fmt.Sprintf("%q", p)
		}
		return "[" + strings.Join(q, ",") + "]"
	}
	return fmt.Sprintf(`{"game_id":%q,"season":%q,"seq":%d,"period":%d,"elapsed":%g,"kind":%q,"team_id":%q,"points":%d,"home_team_id":%q,"away_team_id":%q,"home_lineup":%s,"away_lineup":%s,"home_score":%d,"away_score":%d}`,
		ev.GameID, ev.Season, ev.Seq, ev.Period, ev.Elapsed, ev.RawKind, ev.TeamID, ev.Points,
		ev.HomeTeamID, ev.AwayTeamID, quote(ev.HomeLineup), quote(ev.AwayLineup), ev.HomeScore, ev.AwayScore)
}
