// Package ingest turns a game's event stream into stored facts: lineup
// identities, stint records, possessions and snapshots.
package ingest

import (
	"context"
	"sort"
	"strings"

	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/lineup"
	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/possession"
	"github.com/pable/go-lineup-metrics/internal/stint"
)

var (
	ErrEmptyGame      = errkind.New("game has no events", errkind.IngestionFatal)
	ErrMixedGame      = errkind.New("event does not belong to the game", errkind.IngestionFatal)
	ErrOutOfOrder     = stint.ErrOutOfOrder
	ErrRosterConflict = errkind.New("player on both teams", errkind.IngestionFatal)
)

const ctxCheckEvery = 256

type resolved struct {
	home, away model.Lineup
}

// Derive computes every fact of one game. The first pass checks ordering and
// resolves lineups, the second feeds the possession segmenter and one stint
// tracker per player. Any fatal problem rejects the whole game.
func Derive(ctx context.Context, events []model.Event) (*model.GameFacts, error) {
	if len(events) == 0 {
		return nil, ErrEmptyGame
	}
	first := &events[0]
	game := model.Game{
		GameID:     first.GameID,
		Season:     first.Season,
		HomeTeamID: first.HomeTeamID,
		AwayTeamID: first.AwayTeamID,
		Events:     len(events),
	}

	// ---- Pass 1: ordering, lineup identities, rosters. ----

	cache := map[string]model.Lineup{}
	resolve := func(team string, players []string) (model.Lineup, error) {
		key := team + "\x00" + strings.Join(players, "\x00")
		if l, ok := cache[key]; ok {
			return l, nil
		}
		l, err := lineup.Resolve(team, players)
		if err != nil {
			return model.Lineup{}, err
		}
		cache[key] = l
		return l, nil
	}

	lineups := make([]resolved, len(events))
	teamOf := map[string]string{}
	var roster []string
	seenLineup := map[model.LineupID]bool{}
	var uniq []model.Lineup

	for i := range events {
		ev := &events[i]
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if ev.GameID != game.GameID || ev.HomeTeamID != game.HomeTeamID || ev.AwayTeamID != game.AwayTeamID {
			return nil, crerr.Wrapf(ErrMixedGame, "event %d: game %s %s-%s", ev.Seq, ev.GameID, ev.HomeTeamID, ev.AwayTeamID)
		}
		if i > 0 {
			prev := &events[i-1]
			if ev.Seq <= prev.Seq {
				return nil, crerr.Wrapf(ErrOutOfOrder, "game %s: event %d after %d", game.GameID, ev.Seq, prev.Seq)
			}
			if ev.Elapsed < prev.Elapsed {
				return nil, crerr.Wrapf(ErrOutOfOrder, "game %s: event %d clock %.1fs after %.1fs",
					game.GameID, ev.Seq, ev.Elapsed, prev.Elapsed)
			}
		}

		home, err := resolve(game.HomeTeamID, ev.HomeLineup)
		if err != nil {
			return nil, crerr.Wrapf(err, "game %s event %d", game.GameID, ev.Seq)
		}
		away, err := resolve(game.AwayTeamID, ev.AwayLineup)
		if err != nil {
			return nil, crerr.Wrapf(err, "game %s event %d", game.GameID, ev.Seq)
		}
		lineups[i] = resolved{home: home, away: away}

		for _, l := range []model.Lineup{home, away} {
			if !seenLineup[l.ID] {
				seenLineup[l.ID] = true
				uniq = append(uniq, l)
			}
			for _, p := range l.Players {
				switch t, ok := teamOf[p]; {
				case !ok:
					teamOf[p] = l.TeamID
					roster = append(roster, p)
				case t != l.TeamID:
					return nil, crerr.Wrapf(ErrRosterConflict, "game %s: player %s at event %d", game.GameID, p, ev.Seq)
				}
			}
		}
	}
	sort.Strings(roster)

	// ---- Pass 2: possessions, stints, snapshots. ----

	seg := possession.NewSegmenter(game.GameID, game.HomeTeamID, game.AwayTeamID)
	trackers := make(map[string]*stint.Tracker, len(roster))
	for _, p := range roster {
		trackers[p] = stint.NewTracker(game.GameID, p, teamOf[p])
	}
	snapshots := make([]model.LineupSnapshot, 0, 2*len(events))

	for i := range events {
		ev := &events[i]
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		l := lineups[i]
		number, err := seg.Push(ev, l.home.ID, l.away.ID)
		if err != nil {
			return nil, err
		}

		onCourt := make(map[string]bool, 10)
		for _, p := range l.home.Players {
			onCourt[p] = true
		}
		for _, p := range l.away.Players {
			onCourt[p] = true
		}
		for _, p := range roster {
			if err := trackers[p].Observe(ev.Seq, ev.Elapsed, onCourt[p]); err != nil {
				return nil, err
			}
		}

		for _, side := range []model.Lineup{l.home, l.away} {
			snapshots = append(snapshots, model.LineupSnapshot{
				GameID:     game.GameID,
				Seq:        ev.Seq,
				TeamID:     side.TeamID,
				Players:    side.Players,
				LineupID:   side.ID,
				PointDiff:  ev.ScoreDiff(side.TeamID),
				Possession: number,
			})
		}
	}

	possessions, flags, err := seg.Finish()
	if err != nil {
		return nil, err
	}
	offense := make(map[int]string, len(possessions))
	for _, p := range possessions {
		offense[p.Number] = p.OffenseTeam
	}
	for i := range snapshots {
		snapshots[i].HasPossession = offense[snapshots[i].Possession] == snapshots[i].TeamID
	}

	facts := &model.GameFacts{
		Game:        game,
		Lineups:     uniq,
		Snapshots:   snapshots,
		Possessions: possessions,
		Flags:       flags,
	}
	facts.Game.Possessions = len(possessions)
	facts.Game.Flags = len(flags)
	for _, p := range roster {
		tr := trackers[p]
		recs := tr.Records()
		facts.Stints = append(facts.Stints, recs...)
		pg := model.PlayerGame{
			GameID:   game.GameID,
			PlayerID: p,
			TeamID:   teamOf[p],
			Stints:   len(tr.Stints()),
		}
		if n := len(recs); n > 0 {
			pg.SecondsPlayed = recs[n-1].SecondsPlayed
		}
		facts.Players = append(facts.Players, pg)
	}
	return facts, nil
}
