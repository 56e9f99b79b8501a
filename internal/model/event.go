package model

// EventKind classifies a play-by-play event. The possession segmenter's
// boundary table is keyed by it.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindMadeShot
	KindMissedShot
	KindFreeThrowMade
	KindFreeThrowMissed
	KindOffensiveRebound
	KindDefensiveRebound
	KindTurnover
	KindEndOfPeriod
	KindStartOfPeriod
	KindFoul
	KindSubstitution
	KindTimeout
	KindJumpBall
	KindViolation
)

var kindNames = map[EventKind]string{
	KindUnknown:          "unknown",
	KindMadeShot:         "made_shot",
	KindMissedShot:       "missed_shot",
	KindFreeThrowMade:    "free_throw_made",
	KindFreeThrowMissed:  "free_throw_missed",
	KindOffensiveRebound: "offensive_rebound",
	KindDefensiveRebound: "defensive_rebound",
	KindTurnover:         "turnover",
	KindEndOfPeriod:      "end_of_period",
	KindStartOfPeriod:    "start_of_period",
	KindFoul:             "foul",
	KindSubstitution:     "substitution",
	KindTimeout:          "timeout",
	KindJumpBall:         "jump_ball",
	KindViolation:        "violation",
}

var kindsByName = func() map[string]EventKind {
	m := make(map[string]EventKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k EventKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseEventKind maps a wire name to its kind. ok is false for names outside
// the classification table; callers flag those events rather than guess.
func ParseEventKind(s string) (kind EventKind, ok bool) {
	kind, ok = kindsByName[s]
	return kind, ok && kind != KindUnknown
}

// Event is one on-court moment of a game, decoded from the upstream stream.
type Event struct {
	GameID   string
	Season   string
	Seq      int
	Period   int
	Elapsed  float64 // seconds since tip-off, monotonic within a game
	Clock    string  // display clock, e.g. "11:42"
	Kind     EventKind
	RawKind  string // wire value, kept for flagged events
	TeamID   string // acting team; empty for period markers
	PlayerID string
	Points   int
	ShotType string
	// FinalAttempt marks the last free throw of a trip.
	FinalAttempt bool

	HomeTeamID string
	AwayTeamID string
	HomeLineup []string
	AwayLineup []string
	HomeScore  int
	AwayScore  int
}

// Opponent returns the other team of the game, or "" when teamID plays in neither slot.
func (e *Event) Opponent(teamID string) string {
	switch teamID {
	case e.HomeTeamID:
		return e.AwayTeamID
	case e.AwayTeamID:
		return e.HomeTeamID
	default:
		return ""
	}
}

// ScoreDiff returns teamID's score minus the opponent's at this event.
func (e *Event) ScoreDiff(teamID string) int {
	if teamID == e.HomeTeamID {
		return e.HomeScore - e.AwayScore
	}
	return e.AwayScore - e.HomeScore
}
