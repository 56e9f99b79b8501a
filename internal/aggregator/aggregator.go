// Package aggregator holds the in-memory side of the aggregation engine:
// grouping possessions into rating splits, possession windows, confidence
// classes and composite lineup attributes.
package aggregator

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-lineup-metrics/internal/model"
)

// Thresholds are the possession counts separating confidence classes.
type Thresholds struct {
	Low  int
	High int
}

// DefaultThresholds match the configuration defaults.
var DefaultThresholds = Thresholds{Low: 100, High: 400}

// Classify returns the confidence class of a sample of n possessions.
func (t Thresholds) Classify(n int) model.Confidence {
	switch {
	case n <= 0:
		return model.ConfidenceNone
	case n < t.Low:
		return model.ConfidenceLow
	case n < t.High:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceHigh
	}
}

// OnOffConfidence grades an on/off split by the possessions of its smaller side.
func (t Thresholds) OnOffConfidence(agg *model.PlayerOnOffAggregate) model.Confidence {
	if agg.NoOffSample() {
		return model.ConfidenceNone
	}
	n := agg.On.Possessions()
	if off := agg.Off.Possessions(); off < n {
		n = off
	}
	return t.Classify(n)
}

// groupBy sums possessions into rating splits. key returns the offense and
// defense keys of a possession; an empty key is skipped.
func groupBy[K comparable](possessions []model.PossessionRecord, key func(*model.PossessionRecord) (off, def K)) map[K]*model.RatingSplit {
	var zero K
	out := make(map[K]*model.RatingSplit)
	get := func(k K) *model.RatingSplit {
		r, ok := out[k]
		if !ok {
			r = &model.RatingSplit{}
			out[k] = r
		}
		return r
	}
	for i := range possessions {
		p := &possessions[i]
		off, def := key(p)
		if off != zero {
			r := get(off)
			r.OffPossessions++
			r.PointsFor += p.Points
		}
		if def != zero {
			r := get(def)
			r.DefPossessions++
			r.PointsAgainst += p.Points
		}
	}
	return out
}

// LineupTotals groups possessions by the lineups on both ends.
func LineupTotals(possessions []model.PossessionRecord) map[model.LineupID]*model.RatingSplit {
	return groupBy(possessions, func(p *model.PossessionRecord) (model.LineupID, model.LineupID) {
		return p.OffenseLineup, p.DefenseLineup
	})
}

// TeamTotals groups possessions by offense and defense team.
func TeamTotals(possessions []model.PossessionRecord) map[string]*model.RatingSplit {
	return groupBy(possessions, func(p *model.PossessionRecord) (string, string) {
		return p.OffenseTeam, p.DefenseTeam
	})
}

// OnOffTotals splits possessions into on-court and off-court totals for one
// player of teamID. lineupPlayers maps each lineup to its five players.
func OnOffTotals(possessions []model.PossessionRecord, playerID, teamID string, lineupPlayers map[model.LineupID][5]string) (on, off model.RatingSplit) {
	for i := range possessions {
		p := &possessions[i]
		var l model.LineupID
		var side model.RatingSplit
		switch teamID {
		case p.OffenseTeam:
			l = p.OffenseLineup
			side = model.RatingSplit{OffPossessions: 1, PointsFor: p.Points}
		case p.DefenseTeam:
			l = p.DefenseLineup
			side = model.RatingSplit{DefPossessions: 1, PointsAgainst: p.Points}
		default:
			continue
		}
		if contains(lineupPlayers[l], playerID) {
			on.Add(side)
		} else {
			off.Add(side)
		}
	}
	return on, off
}

func contains(players [5]string, id string) bool {
	for _, p := range players {
		if p == id {
			return true
		}
	}
	return false
}

// Windows slices a game's possessions, ordered by number, into consecutive
// windows of size. The last window is partial when the count does not
// divide evenly.
func Windows(gameID string, possessions []model.PossessionRecord, size int) []model.PossessionWindow {
	if size <= 0 || len(possessions) == 0 {
		return nil
	}
	sorted := append([]model.PossessionRecord(nil), possessions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var out []model.PossessionWindow
	for start := 0; start < len(sorted); start += size {
		end := start + size
		if end > len(sorted) {
			end = len(sorted)
		}
		chunk := sorted[start:end]
		w := model.PossessionWindow{
			GameID:          gameID,
			Index:           len(out),
			Size:            size,
			FirstPossession: chunk[0].Number,
			LastPossession:  chunk[len(chunk)-1].Number,
			Partial:         len(chunk) < size,
		}
		totals := TeamTotals(chunk)
		for team, r := range totals {
			w.Teams = append(w.Teams, model.TeamWindow{TeamID: team, RatingSplit: *r})
		}
		sort.Slice(w.Teams, func(i, j int) bool { return w.Teams[i].TeamID < w.Teams[j].TeamID })
		out = append(out, w)
	}
	return out
}

// Composite averages the attributes of a lineup's five players. An average
// is nil unless every player has that attribute; a missing value is never
// treated as zero.
func Composite(players [5]string, attrs map[string]model.PlayerAttributes) model.CompositeAttributes {
	mean := func(get func(model.PlayerAttributes) *float64) *float64 {
		vals := make([]float64, 0, len(players))
		for _, id := range players {
			a, ok := attrs[id]
			if !ok {
				return nil
			}
			v := get(a)
			if v == nil {
				return nil
			}
			vals = append(vals, *v)
		}
		m := stat.Mean(vals, nil)
		return &m
	}
	return model.CompositeAttributes{
		AvgAge:        mean(func(a model.PlayerAttributes) *float64 { return a.Age }),
		AvgHeightIn:   mean(func(a model.PlayerAttributes) *float64 { return a.HeightIn }),
		AvgWeightLb:   mean(func(a model.PlayerAttributes) *float64 { return a.WeightLb }),
		AvgExperience: mean(func(a model.PlayerAttributes) *float64 { return a.Experience }),
	}
}
