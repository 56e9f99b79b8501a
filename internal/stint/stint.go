// Package stint segments a player's per-event on-court flag into stints.
package stint

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

var ErrOutOfOrder = errkind.New("stint input out of order", errkind.IngestionFatal)

// Tracker follows one player through one game. Feed it every event of the
// game in order; it emits one PlayerStintRecord per event.
type Tracker struct {
	gameID, playerID, teamID string

	started     bool
	lastSeq     int
	lastElapsed float64
	prevOn      bool

	stintSeq      int
	stintID       string
	rest          *float64
	lastOnElapsed float64
	secondsPlayed float64

	records []model.PlayerStintRecord
}

func NewTracker(gameID, playerID, teamID string) *Tracker {
	return &Tracker{gameID: gameID, playerID: playerID, teamID: teamID}
}

// Observe records the player's state at one event. A new stint starts exactly
// on an off->on transition; time on court accrues only between consecutive
// on-court events.
func (t *Tracker) Observe(seq int, elapsed float64, onCourt bool) error {
	if t.started {
		if seq <= t.lastSeq {
			return crerr.Wrapf(ErrOutOfOrder, "player %s: event %d after %d", t.playerID, seq, t.lastSeq)
		}
		if elapsed < t.lastElapsed {
			return crerr.Wrapf(ErrOutOfOrder, "player %s: clock %.1fs after %.1fs at event %d",
				t.playerID, elapsed, t.lastElapsed, seq)
		}
	}

	if onCourt {
		if !t.prevOn {
			t.stintSeq++
			t.stintID = fmt.Sprintf("%s:%s:%d", t.gameID, t.playerID, t.stintSeq)
			t.rest = nil
			if t.stintSeq > 1 {
				rest := elapsed - t.lastOnElapsed
				t.rest = &rest
			}
		} else {
			t.secondsPlayed += elapsed - t.lastElapsed
		}
		t.lastOnElapsed = elapsed
	}

	rec := model.PlayerStintRecord{
		GameID:        t.gameID,
		Seq:           seq,
		PlayerID:      t.playerID,
		TeamID:        t.teamID,
		Elapsed:       elapsed,
		OnCourt:       onCourt,
		StintSeq:      t.stintSeq,
		SecondsPlayed: t.secondsPlayed,
	}
	if onCourt {
		rec.StintID = t.stintID
		if t.rest != nil {
			r := *t.rest
			rec.RestSeconds = &r
		}
	}
	t.records = append(t.records, rec)

	t.started = true
	t.lastSeq = seq
	t.lastElapsed = elapsed
	t.prevOn = onCourt
	return nil
}

// Records returns every record observed so far, in event order.
func (t *Tracker) Records() []model.PlayerStintRecord {
	return t.records
}

// Stints collapses the records observed so far.
func (t *Tracker) Stints() []model.Stint {
	return Collapse(t.records)
}

// Collapse turns ordered records of one player into stint summaries.
func Collapse(records []model.PlayerStintRecord) []model.Stint {
	var out []model.Stint
	var cur *model.Stint
	for _, r := range records {
		if !r.OnCourt {
			cur = nil
			continue
		}
		if cur == nil || cur.Seq != r.StintSeq {
			out = append(out, model.Stint{
				GameID:       r.GameID,
				PlayerID:     r.PlayerID,
				TeamID:       r.TeamID,
				Seq:          r.StintSeq,
				StartSeq:     r.Seq,
				StartElapsed: r.Elapsed,
				RestSeconds:  r.RestSeconds,
			})
			cur = &out[len(out)-1]
		}
		cur.EndSeq = r.Seq
		cur.EndElapsed = r.Elapsed
		cur.Events++
	}
	return out
}
