package httpapi

import (
	"time"

	"github.com/pable/go-lineup-metrics/internal/model"
)

func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

type splitView struct {
	Possessions    int      `json:"possessions"`
	OffPossessions int      `json:"off_possessions"`
	DefPossessions int      `json:"def_possessions"`
	PointsFor      int      `json:"points_for"`
	PointsAgainst  int      `json:"points_against"`
	ORtg           *float64 `json:"ortg"`
	DRtg           *float64 `json:"drtg"`
	Net            *float64 `json:"net"`
}

func newSplitView(r *model.RatingSplit) *splitView {
	if r == nil {
		return nil
	}
	return &splitView{
		Possessions:    r.Possessions(),
		OffPossessions: r.OffPossessions,
		DefPossessions: r.DefPossessions,
		PointsFor:      r.PointsFor,
		PointsAgainst:  r.PointsAgainst,
		ORtg:           opt(r.ORtg()),
		DRtg:           opt(r.DRtg()),
		Net:            opt(r.Net()),
	}
}

type compositeView struct {
	AvgAge        *float64 `json:"avg_age"`
	AvgHeightIn   *float64 `json:"avg_height_in"`
	AvgWeightLb   *float64 `json:"avg_weight_lb"`
	AvgExperience *float64 `json:"avg_experience"`
}

type lineupView struct {
	Scope     string        `json:"scope"`
	LineupID  string        `json:"lineup_id"`
	TeamID    string        `json:"team_id"`
	Players   []string      `json:"players"`
	Games     int           `json:"games"`
	Split     *splitView    `json:"split"`
	Composite compositeView `json:"composite"`
}

func newLineupView(a *model.LineupAggregate) lineupView {
	return lineupView{
		Scope:    a.Scope.String(),
		LineupID: string(a.LineupID),
		TeamID:   a.TeamID,
		Players:  a.Players[:],
		Games:    a.Games,
		Split:    newSplitView(&a.RatingSplit),
		Composite: compositeView{
			AvgAge:        a.Composite.AvgAge,
			AvgHeightIn:   a.Composite.AvgHeightIn,
			AvgWeightLb:   a.Composite.AvgWeightLb,
			AvgExperience: a.Composite.AvgExperience,
		},
	}
}

type onOffView struct {
	Scope            string     `json:"scope"`
	PlayerID         string     `json:"player_id"`
	Games            int        `json:"games"`
	On               *splitView `json:"on"`
	Off              *splitView `json:"off"`
	NoOffSample      bool       `json:"no_off_sample"`
	NetDiff          *float64   `json:"net_diff"`
	ReplacementValue *float64   `json:"replacement_value"`
	Confidence       string     `json:"confidence"`
}

func newOnOffView(a *model.PlayerOnOffAggregate) onOffView {
	return onOffView{
		Scope:            a.Scope.String(),
		PlayerID:         a.PlayerID,
		Games:            a.Games,
		On:               newSplitView(&a.On),
		Off:              newSplitView(a.Off),
		NoOffSample:      a.NoOffSample(),
		NetDiff:          opt(a.NetDiff()),
		ReplacementValue: opt(a.ReplacementValue()),
		Confidence:       string(a.Confidence),
	}
}

type stintRecordView struct {
	Seq           int      `json:"seq"`
	Elapsed       float64  `json:"elapsed"`
	OnCourt       bool     `json:"on_court"`
	StintID       string   `json:"stint_id,omitempty"`
	SecondsPlayed float64  `json:"seconds_played"`
	RestSeconds   *float64 `json:"rest_seconds"`
}

type stintView struct {
	Seq          int      `json:"seq"`
	StartSeq     int      `json:"start_seq"`
	EndSeq       int      `json:"end_seq"`
	StartElapsed float64  `json:"start_elapsed"`
	EndElapsed   float64  `json:"end_elapsed"`
	Seconds      float64  `json:"seconds"`
	RestSeconds  *float64 `json:"rest_seconds"`
}

type stintsView struct {
	GameID   string            `json:"game_id"`
	PlayerID string            `json:"player_id"`
	Stints   []stintView       `json:"stints"`
	Records  []stintRecordView `json:"records"`
}

func newStintsView(gameID, playerID string, recs []model.PlayerStintRecord, stints []model.Stint) stintsView {
	v := stintsView{GameID: gameID, PlayerID: playerID}
	for _, r := range recs {
		v.Records = append(v.Records, stintRecordView{
			Seq: r.Seq, Elapsed: r.Elapsed, OnCourt: r.OnCourt, StintID: r.StintID,
			SecondsPlayed: r.SecondsPlayed, RestSeconds: r.RestSeconds,
		})
	}
	for i := range stints {
		s := &stints[i]
		v.Stints = append(v.Stints, stintView{
			Seq: s.Seq, StartSeq: s.StartSeq, EndSeq: s.EndSeq,
			StartElapsed: s.StartElapsed, EndElapsed: s.EndElapsed,
			Seconds: s.Seconds(), RestSeconds: s.RestSeconds,
		})
	}
	return v
}

type teamWindowView struct {
	TeamID string     `json:"team_id"`
	Split  *splitView `json:"split"`
}

type windowView struct {
	Index           int              `json:"index"`
	Size            int              `json:"size"`
	FirstPossession int              `json:"first_possession"`
	LastPossession  int              `json:"last_possession"`
	Partial         bool             `json:"partial"`
	Teams           []teamWindowView `json:"teams"`
}

func newWindowViews(ws []model.PossessionWindow) []windowView {
	out := make([]windowView, 0, len(ws))
	for _, w := range ws {
		v := windowView{
			Index: w.Index, Size: w.Size,
			FirstPossession: w.FirstPossession, LastPossession: w.LastPossession,
			Partial: w.Partial,
		}
		for i := range w.Teams {
			v.Teams = append(v.Teams, teamWindowView{TeamID: w.Teams[i].TeamID, Split: newSplitView(&w.Teams[i].RatingSplit)})
		}
		out = append(out, v)
	}
	return out
}

type gameView struct {
	GameID      string     `json:"game_id"`
	Season      string     `json:"season"`
	HomeTeamID  string     `json:"home_team_id"`
	AwayTeamID  string     `json:"away_team_id"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	Events      int        `json:"events"`
	Possessions int        `json:"possessions"`
	Flags       int        `json:"flags"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
}

func newGameView(g *model.Game) gameView {
	ts := func(t time.Time) *time.Time {
		if t.IsZero() {
			return nil
		}
		return &t
	}
	return gameView{
		GameID: g.GameID, Season: g.Season, HomeTeamID: g.HomeTeamID, AwayTeamID: g.AwayTeamID,
		Status: string(g.Status), Attempts: g.Attempts, Events: g.Events,
		Possessions: g.Possessions, Flags: g.Flags, Error: g.Error,
		StartedAt: ts(g.StartedAt), FinishedAt: ts(g.FinishedAt),
	}
}
