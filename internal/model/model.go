package model

import (
	"fmt"
	"strings"
	"time"
)

// LineupID is the canonical, order-independent identity of five players.
type LineupID string

// Lineup is the five players one team has on court.
type Lineup struct {
	ID      LineupID
	TeamID  string
	Players [5]string // sorted
}

// ---- Scopes ----

type ScopeKind string

const (
	ScopeAll    ScopeKind = "all"
	ScopeSeason ScopeKind = "season"
	ScopeGame   ScopeKind = "game"
)

// Scope narrows aggregates to one game, one season, or everything stored.
type Scope struct {
	Kind  ScopeKind
	Value string
}

func AllScope() Scope                 { return Scope{Kind: ScopeAll} }
func SeasonScope(season string) Scope { return Scope{Kind: ScopeSeason, Value: season} }
func GameScope(gameID string) Scope   { return Scope{Kind: ScopeGame, Value: gameID} }

func (s Scope) String() string {
	if s.Kind == ScopeAll {
		return string(ScopeAll)
	}
	return string(s.Kind) + ":" + s.Value
}

// ParseScope accepts "all", "season:<id>" and "game:<id>".
func ParseScope(s string) (Scope, error) {
	if s == "" || s == string(ScopeAll) {
		return AllScope(), nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return Scope{}, fmt.Errorf("invalid scope %q: want all, season:<id> or game:<id>", s)
	}
	switch ScopeKind(kind) {
	case ScopeSeason, ScopeGame:
		return Scope{Kind: ScopeKind(kind), Value: value}, nil
	default:
		return Scope{}, fmt.Errorf("invalid scope kind %q", kind)
	}
}

// ---- Fact rows written once per game ----

// LineupSnapshot is one row per (game, event, team).
type LineupSnapshot struct {
	GameID        string
	Seq           int
	TeamID        string
	Players       [5]string
	LineupID      LineupID
	PointDiff     int // team score minus opponent score
	HasPossession bool
	Possession    int
}

// PlayerStintRecord is one row per (game, event, player).
type PlayerStintRecord struct {
	GameID        string
	Seq           int
	PlayerID      string
	TeamID        string
	Elapsed       float64
	OnCourt       bool
	StintID       string // empty while off court
	StintSeq      int    // latest stint number, 0 before the first one
	SecondsPlayed float64
	RestSeconds   *float64 // nil for a first stint and for off-court rows
}

// Stint is one maximal on-court interval, collapsed from stint records.
type Stint struct {
	GameID       string
	PlayerID     string
	TeamID       string
	Seq          int
	StartSeq     int
	EndSeq       int
	StartElapsed float64
	EndElapsed   float64
	Events       int
	RestSeconds  *float64
}

func (s *Stint) Seconds() float64 {
	return s.EndElapsed - s.StartElapsed
}

type PossessionOutcome string

const (
	OutcomeMadeShot    PossessionOutcome = "made_shot"
	OutcomeMissedShot  PossessionOutcome = "missed_shot"
	OutcomeTurnover    PossessionOutcome = "turnover"
	OutcomeEndOfPeriod PossessionOutcome = "end_of_period"
	OutcomeOther       PossessionOutcome = "other"
)

// PossessionRecord is one row per (game, possession number).
type PossessionRecord struct {
	GameID        string
	Number        int
	Period        int
	StartSeq      int
	EndSeq        int
	StartElapsed  float64
	EndElapsed    float64
	Outcome       PossessionOutcome
	Points        int
	ShotCategory  string
	OffenseTeam   string
	DefenseTeam   string
	OffenseLineup LineupID
	DefenseLineup LineupID
}

func (p *PossessionRecord) Duration() float64 {
	return p.EndElapsed - p.StartElapsed
}

// EventFlag records a recoverable problem with a single event.
type EventFlag struct {
	GameID  string
	Seq     int
	Reason  string
	RawKind string
}

// ---- Ingestion status ----

type IngestStatus string

const (
	StatusPending    IngestStatus = "pending"
	StatusInProgress IngestStatus = "in_progress"
	StatusComplete   IngestStatus = "complete"
	StatusFailed     IngestStatus = "failed"
)

// Game is the per-game ingestion-status record.
type Game struct {
	GameID      string
	Season      string
	HomeTeamID  string
	AwayTeamID  string
	Status      IngestStatus
	RunID       string
	Attempts    int
	Events      int
	Possessions int
	Flags       int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ---- Player attributes (external, optional) ----

type PlayerAttributes struct {
	PlayerID   string
	Name       string
	Age        *float64
	HeightIn   *float64
	WeightLb   *float64
	Experience *float64
}

// CompositeAttributes are lineup averages of PlayerAttributes. A field is nil
// unless all five players have the attribute.
type CompositeAttributes struct {
	AvgAge        *float64
	AvgHeightIn   *float64
	AvgWeightLb   *float64
	AvgExperience *float64
}

// ---- Aggregates ----

// RatingSplit holds possession and point totals for one side of a split.
type RatingSplit struct {
	OffPossessions int
	DefPossessions int
	PointsFor      int
	PointsAgainst  int
}

func (r *RatingSplit) Possessions() int {
	return r.OffPossessions + r.DefPossessions
}

// ORtg is points scored per 100 offensive possessions.
func (r *RatingSplit) ORtg() (float64, bool) {
	return per100(r.PointsFor, r.OffPossessions)
}

// DRtg is points allowed per 100 defensive possessions.
func (r *RatingSplit) DRtg() (float64, bool) {
	return per100(r.PointsAgainst, r.DefPossessions)
}

// Net is ORtg minus DRtg; absent unless both sides have possessions.
func (r *RatingSplit) Net() (float64, bool) {
	o, okO := r.ORtg()
	d, okD := r.DRtg()
	if !okO || !okD {
		return 0, false
	}
	return o - d, true
}

func (r *RatingSplit) Add(o RatingSplit) {
	r.OffPossessions += o.OffPossessions
	r.DefPossessions += o.DefPossessions
	r.PointsFor += o.PointsFor
	r.PointsAgainst += o.PointsAgainst
}

func per100(points, possessions int) (float64, bool) {
	if possessions == 0 {
		return 0, false
	}
	return float64(points) / float64(possessions) * 100, true
}

// LineupAggregate is the derived per-lineup view within a scope.
type LineupAggregate struct {
	Scope    Scope
	LineupID LineupID
	TeamID   string
	Players  [5]string
	Games    int
	RatingSplit
	Composite CompositeAttributes
}

type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// PlayerOnOffAggregate compares team efficiency with the player on and off court.
type PlayerOnOffAggregate struct {
	PlayerID   string
	Scope      Scope
	Games      int
	On         RatingSplit
	Off        *RatingSplit // nil when the player never sat during the scope
	Confidence Confidence
}

// NoOffSample reports that there is nothing to compare the on-court split with.
func (a *PlayerOnOffAggregate) NoOffSample() bool {
	return a.Off == nil || a.Off.Possessions() == 0
}

// NetDiff is on-court net rating minus off-court net rating.
func (a *PlayerOnOffAggregate) NetDiff() (float64, bool) {
	if a.NoOffSample() {
		return 0, false
	}
	on, ok := a.On.Net()
	if !ok {
		return 0, false
	}
	off, ok := a.Off.Net()
	if !ok {
		return 0, false
	}
	return on - off, true
}

// ReplacementValue scales NetDiff to the player's on-court possessions: the
// points the team gained over the scope relative to its off-court units.
// On.Possessions counts both ends of the floor, hence the halving.
func (a *PlayerOnOffAggregate) ReplacementValue() (float64, bool) {
	diff, ok := a.NetDiff()
	if !ok {
		return 0, false
	}
	return diff * float64(a.On.Possessions()) / 2 / 100, true
}

// PossessionWindow is one slice of a game's possessions.
type PossessionWindow struct {
	GameID          string
	Index           int
	Size            int
	FirstPossession int
	LastPossession  int
	Partial         bool
	Teams           []TeamWindow
}

type TeamWindow struct {
	TeamID string
	RatingSplit
}

// PlayerGame lists one player appearing for a team in one game.
type PlayerGame struct {
	GameID        string
	PlayerID      string
	TeamID        string
	SecondsPlayed float64
	Stints        int
}

// GameFacts is everything derived from one game, written as a single unit.
type GameFacts struct {
	Game        Game
	Lineups     []Lineup
	Snapshots   []LineupSnapshot
	Stints      []PlayerStintRecord
	Possessions []PossessionRecord
	Flags       []EventFlag
	Players     []PlayerGame
}
