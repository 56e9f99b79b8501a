// Package possession splits a game's event stream into possessions.
package possession

import (
	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

var ErrUnterminatedPeriod = errkind.New("period ended without end_of_period marker", errkind.IngestionFatal)

const (
	FlagUnknownKind = "unknown_event_kind"
	FlagUnknownTeam = "team_not_in_game"
)

type hint int

const (
	hintNone hint = iota
	hintActor
	hintOpponent
)

type rule struct {
	boundary bool
	hint     hint
	scoring  bool
}

var rules = map[model.EventKind]rule{
	model.KindMadeShot:         {boundary: true, hint: hintActor, scoring: true},
	model.KindFreeThrowMade:    {hint: hintActor, scoring: true}, // boundary only on the final attempt
	model.KindFreeThrowMissed:  {hint: hintActor},
	model.KindMissedShot:       {hint: hintActor},
	model.KindOffensiveRebound: {hint: hintActor},
	model.KindDefensiveRebound: {boundary: true, hint: hintOpponent},
	model.KindTurnover:         {boundary: true, hint: hintActor},
	model.KindEndOfPeriod:      {boundary: true},
}

// IsBoundary reports whether ev closes the possession it belongs to.
func IsBoundary(ev *model.Event) bool {
	if ev.Kind == model.KindFreeThrowMade {
		return ev.FinalAttempt
	}
	return rules[ev.Kind].boundary
}

func outcomeOf(ev *model.Event) model.PossessionOutcome {
	switch ev.Kind {
	case model.KindMadeShot, model.KindFreeThrowMade:
		return model.OutcomeMadeShot
	case model.KindDefensiveRebound:
		return model.OutcomeMissedShot
	case model.KindTurnover:
		return model.OutcomeTurnover
	case model.KindEndOfPeriod:
		return model.OutcomeEndOfPeriod
	default:
		return model.OutcomeOther
	}
}

// Segmenter assigns every event of one game to exactly one possession.
// Possessions are contiguous and numbered from 1.
type Segmenter struct {
	gameID     string
	home, away string

	period       int
	periodClosed bool
	seen         bool

	cur         *model.PossessionRecord
	offense     string
	firstTeam   string
	points      map[string]int
	homeLineup  model.LineupID
	awayLineup  model.LineupID
	prevOffense string

	records []model.PossessionRecord
	flags   []model.EventFlag
}

func NewSegmenter(gameID, homeTeamID, awayTeamID string) *Segmenter {
	return &Segmenter{gameID: gameID, home: homeTeamID, away: awayTeamID}
}

func (s *Segmenter) opponent(teamID string) string {
	switch teamID {
	case s.home:
		return s.away
	case s.away:
		return s.home
	}
	return ""
}

// Push feeds the next event along with both lineups on court at that event
// and returns the number of the possession it belongs to.
func (s *Segmenter) Push(ev *model.Event, home, away model.LineupID) (int, error) {
	if s.seen && ev.Period != s.period {
		if !s.periodClosed {
			return 0, crerr.Wrapf(ErrUnterminatedPeriod, "game %s: period %d -> %d at event %d",
				s.gameID, s.period, ev.Period, ev.Seq)
		}
		// Stray events after the marker form their own possession.
		if s.cur != nil {
			s.close(model.OutcomeOther)
		}
	}
	if !s.seen || ev.Period != s.period {
		s.period = ev.Period
		s.periodClosed = false
	}
	s.seen = true

	if s.cur == nil {
		s.open(ev, home, away)
	}
	number := s.cur.Number
	s.cur.EndSeq = ev.Seq
	s.cur.EndElapsed = ev.Elapsed

	if ev.Kind == model.KindUnknown {
		s.flag(ev, FlagUnknownKind)
		return number, nil
	}
	if ev.TeamID != "" && s.opponent(ev.TeamID) == "" {
		s.flag(ev, FlagUnknownTeam)
		return number, nil
	}

	r := rules[ev.Kind]
	if s.firstTeam == "" {
		s.firstTeam = ev.TeamID
	}
	if s.offense == "" && ev.TeamID != "" {
		switch r.hint {
		case hintActor:
			s.offense = ev.TeamID
		case hintOpponent:
			s.offense = s.opponent(ev.TeamID)
		}
	}
	if r.scoring && ev.TeamID != "" {
		s.points[ev.TeamID] += ev.Points
	}
	switch ev.Kind {
	case model.KindMadeShot, model.KindMissedShot:
		s.cur.ShotCategory = ev.ShotType
	case model.KindFreeThrowMade, model.KindFreeThrowMissed:
		if s.cur.ShotCategory == "" {
			s.cur.ShotCategory = "free_throw"
		}
	}

	if IsBoundary(ev) {
		if ev.Kind == model.KindEndOfPeriod {
			s.periodClosed = true
		}
		s.close(outcomeOf(ev))
	}
	return number, nil
}

func (s *Segmenter) open(ev *model.Event, home, away model.LineupID) {
	s.cur = &model.PossessionRecord{
		GameID:       s.gameID,
		Number:       len(s.records) + 1,
		Period:       ev.Period,
		StartSeq:     ev.Seq,
		EndSeq:       ev.Seq,
		StartElapsed: ev.Elapsed,
		EndElapsed:   ev.Elapsed,
	}
	s.offense = ""
	s.firstTeam = ""
	s.points = make(map[string]int, 2)
	s.homeLineup = home
	s.awayLineup = away
}

func (s *Segmenter) close(outcome model.PossessionOutcome) {
	p := s.cur
	off := s.offense
	switch {
	case off != "":
	case s.prevOffense != "":
		off = s.opponent(s.prevOffense)
	case s.firstTeam != "":
		off = s.firstTeam
	default:
		off = s.home
	}
	p.OffenseTeam = off
	p.DefenseTeam = s.opponent(off)
	p.Outcome = outcome
	p.Points = s.points[off]
	if off == s.home {
		p.OffenseLineup, p.DefenseLineup = s.homeLineup, s.awayLineup
	} else {
		p.OffenseLineup, p.DefenseLineup = s.awayLineup, s.homeLineup
	}

	s.records = append(s.records, *p)
	s.prevOffense = off
	s.cur = nil
}

func (s *Segmenter) flag(ev *model.Event, reason string) {
	s.flags = append(s.flags, model.EventFlag{
		GameID:  s.gameID,
		Seq:     ev.Seq,
		Reason:  reason,
		RawKind: ev.RawKind,
	})
}

// Finish closes the stream. The final period must have been terminated by an
// end_of_period marker.
func (s *Segmenter) Finish() ([]model.PossessionRecord, []model.EventFlag, error) {
	if s.seen && !s.periodClosed {
		return nil, nil, crerr.Wrapf(ErrUnterminatedPeriod, "game %s: stream ended inside period %d", s.gameID, s.period)
	}
	if s.cur != nil {
		s.close(model.OutcomeOther)
	}
	return s.records, s.flags, nil
}

// Flags returns the events flagged so far.
func (s *Segmenter) Flags() []model.EventFlag {
	return s.flags
}
