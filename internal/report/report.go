package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-lineup-metrics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// rating formats a per-100 rating, or "—" when the denominator is zero.
func rating(v float64, ok bool) string {
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%.1f", v)
}

func signed(v float64, ok bool) string {
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%+.1f", v)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}

func players(p [5]string) string {
	return strings.Join(p[:], ",")
}

// PrintGames prints one row per game status record.
func PrintGames(w io.Writer, games []model.Game) {
	table := newTable(w)
	table.Header("GAME", "SEASON", "HOME", "AWAY", "STATUS", "ATTEMPTS", "EVENTS", "POSS", "FLAGS", "FINISHED", "ERROR")
	for _, g := range games {
		finished := "—"
		if !g.FinishedAt.IsZero() {
			finished = g.FinishedAt.Local().Format(time.DateTime)
		}
		errMsg := g.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		table.Append(
			g.GameID,
			g.Season,
			g.HomeTeamID,
			g.AwayTeamID,
			string(g.Status),
			strconv.Itoa(g.Attempts),
			strconv.Itoa(g.Events),
			strconv.Itoa(g.Possessions),
			strconv.Itoa(g.Flags),
			finished,
			errMsg,
		)
	}
	table.Render()
}

// PrintLineupTable prints lineup aggregates. If focusPlayer is set, lineups
// containing that player are marked with ">".
func PrintLineupTable(w io.Writer, aggs []model.LineupAggregate, focusPlayer string) {
	table := newTable(w)
	table.Header(" ", "LINEUP", "TEAM", "PLAYERS", "GP", "POSS", "O_POSS", "D_POSS", "PTS", "OPP", "ORTG", "DRTG", "NET")
	for _, a := range aggs {
		marker := " "
		if focusPlayer != "" && strings.Contains(","+players(a.Players)+",", ","+focusPlayer+",") {
			marker = ">"
		}
		table.Append(
			marker,
			string(a.LineupID),
			a.TeamID,
			players(a.Players),
			strconv.Itoa(a.Games),
			strconv.Itoa(a.Possessions()),
			strconv.Itoa(a.OffPossessions),
			strconv.Itoa(a.DefPossessions),
			strconv.Itoa(a.PointsFor),
			strconv.Itoa(a.PointsAgainst),
			rating(a.ORtg()),
			rating(a.DRtg()),
			signed(a.Net()),
		)
	}
	table.Render()
}

// PrintLineupDetail prints one lineup with its composite attributes.
func PrintLineupDetail(w io.Writer, a model.LineupAggregate) {
	fmt.Fprintf(w, "\nLineup: %s  |  Team: %s  |  Scope: %s\n", a.LineupID, a.TeamID, a.Scope)
	fmt.Fprintf(w, "Players: %s\n\n", players(a.Players))
	PrintLineupTable(w, []model.LineupAggregate{a}, "")

	fmt.Fprintln(w)
	table := newTable(w)
	table.Header("AVG_AGE", "AVG_HEIGHT_IN", "AVG_WEIGHT_LB", "AVG_EXP")
	table.Append(
		optional(a.Composite.AvgAge, "%.1f"),
		optional(a.Composite.AvgHeightIn, "%.1f"),
		optional(a.Composite.AvgWeightLb, "%.1f"),
		optional(a.Composite.AvgExperience, "%.1f"),
	)
	table.Render()
}

// PrintOnOffTable prints on/off splits, one row per player.
func PrintOnOffTable(w io.Writer, aggs []model.PlayerOnOffAggregate) {
	table := newTable(w)
	table.Header("PLAYER", "GP", "ON_POSS", "ON_ORTG", "ON_DRTG", "ON_NET", "OFF_POSS", "OFF_NET", "DIFF", "REPL", "CONF")
	for _, a := range aggs {
		offPoss, offNet := "—", "—"
		if a.Off != nil {
			offPoss = strconv.Itoa(a.Off.Possessions())
			offNet = signed(a.Off.Net())
		}
		table.Append(
			a.PlayerID,
			strconv.Itoa(a.Games),
			strconv.Itoa(a.On.Possessions()),
			rating(a.On.ORtg()),
			rating(a.On.DRtg()),
			signed(a.On.Net()),
			offPoss,
			offNet,
			signed(a.NetDiff()),
			signed(a.ReplacementValue()),
			string(a.Confidence),
		)
	}
	table.Render()
}

// PrintOnOffDetail prints the on and off splits of one player side by side.
func PrintOnOffDetail(w io.Writer, a model.PlayerOnOffAggregate) {
	fmt.Fprintf(w, "\nPlayer: %s  |  Scope: %s  |  Games: %d  |  Confidence: %s\n\n",
		a.PlayerID, a.Scope, a.Games, a.Confidence)

	table := newTable(w)
	table.Header("SPLIT", "POSS", "O_POSS", "D_POSS", "PTS", "OPP", "ORTG", "DRTG", "NET")
	row := func(name string, r *model.RatingSplit) {
		if r == nil {
			table.Append(name, "—", "—", "—", "—", "—", "—", "—", "—")
			return
		}
		table.Append(
			name,
			strconv.Itoa(r.Possessions()),
			strconv.Itoa(r.OffPossessions),
			strconv.Itoa(r.DefPossessions),
			strconv.Itoa(r.PointsFor),
			strconv.Itoa(r.PointsAgainst),
			rating(r.ORtg()),
			rating(r.DRtg()),
			signed(r.Net()),
		)
	}
	row("ON", &a.On)
	row("OFF", a.Off)
	table.Render()

	if a.NoOffSample() {
		fmt.Fprintln(w, "\nNo off-court sample in scope.")
		return
	}
	fmt.Fprintf(w, "\nNet diff: %s  |  Replacement value: %s pts\n",
		signed(a.NetDiff()), signed(a.ReplacementValue()))
}

func clock(seconds float64) string {
	s := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// PrintStintTable prints a player's stints in a game.
func PrintStintTable(w io.Writer, stints []model.Stint) {
	table := newTable(w)
	table.Header("#", "STINT", "FROM_EV", "TO_EV", "START", "END", "SECS", "EVENTS", "REST")
	for _, s := range stints {
		table.Append(
			strconv.Itoa(s.Seq),
			fmt.Sprintf("%s:%s:%d", s.GameID, s.PlayerID, s.Seq),
			strconv.Itoa(s.StartSeq),
			strconv.Itoa(s.EndSeq),
			clock(s.StartElapsed),
			clock(s.EndElapsed),
			fmt.Sprintf("%.0f", s.Seconds()),
			strconv.Itoa(s.Events),
			optional(s.RestSeconds, "%.0f"),
		)
	}
	table.Render()
}

// PrintStintRecords prints the per-event stint rows of one player.
func PrintStintRecords(w io.Writer, recs []model.PlayerStintRecord) {
	table := newTable(w)
	table.Header("EVENT", "ELAPSED", "ON", "STINT", "PLAYED", "REST")
	for _, r := range recs {
		on, id := "-", "—"
		if r.OnCourt {
			on, id = "Y", r.StintID
		}
		table.Append(
			strconv.Itoa(r.Seq),
			clock(r.Elapsed),
			on,
			id,
			fmt.Sprintf("%.0f", r.SecondsPlayed),
			optional(r.RestSeconds, "%.0f"),
		)
	}
	table.Render()
}

// PrintWindowTable prints possession windows, one row per window and team.
func PrintWindowTable(w io.Writer, windows []model.PossessionWindow) {
	table := newTable(w)
	table.Header("WIN", "POSS", "TEAM", "O_POSS", "D_POSS", "PTS", "OPP", "ORTG", "DRTG", "NET")
	for _, win := range windows {
		span := fmt.Sprintf("%d-%d", win.FirstPossession, win.LastPossession)
		if win.Partial {
			span += "*"
		}
		for _, t := range win.Teams {
			table.Append(
				strconv.Itoa(win.Index+1),
				span,
				t.TeamID,
				strconv.Itoa(t.OffPossessions),
				strconv.Itoa(t.DefPossessions),
				strconv.Itoa(t.PointsFor),
				strconv.Itoa(t.PointsAgainst),
				rating(t.ORtg()),
				rating(t.DRtg()),
				signed(t.Net()),
			)
		}
	}
	table.Render()
	for _, win := range windows {
		if win.Partial {
			fmt.Fprintln(w, "* partial window")
			break
		}
	}
}

// PrintPlayers prints stored player attributes.
func PrintPlayers(w io.Writer, ps []model.PlayerAttributes) {
	table := newTable(w)
	table.Header("PLAYER", "NAME", "AGE", "HEIGHT_IN", "WEIGHT_LB", "EXP")
	for _, p := range ps {
		name := p.Name
		if name == "" {
			name = "—"
		}
		table.Append(
			p.PlayerID,
			name,
			optional(p.Age, "%.1f"),
			optional(p.HeightIn, "%.0f"),
			optional(p.WeightLb, "%.0f"),
			optional(p.Experience, "%.0f"),
		)
	}
	table.Render()
}

// PrintRaw prints the result of an ad-hoc query.
func PrintRaw(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)
	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}
