package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/query"
	"github.com/pable/go-lineup-metrics/internal/report"
	"github.com/pable/go-lineup-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

type shell struct {
	ctx   context.Context
	db    *storage.DB
	svc   *query.Service
	scope model.Scope
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sh := &shell{ctx: cmd.Context(), db: db, svc: newService(db), scope: model.AllScope()}

	cGreeting.Println("lineups shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("lineups")
		cMuted.Printf("[%s]> ", sh.scope)
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		var err error
		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "scope":
			err = sh.setScope(args)
		case "games":
			err = sh.games(false)
		case "pending":
			err = sh.games(true)
		case "lineup":
			err = sh.lineup(args)
		case "lineups":
			err = sh.lineups(args)
		case "onoff":
			err = sh.onoff(args)
		case "stints":
			err = sh.stints(args)
		case "intervals":
			err = sh.intervals(args)
		case "sql":
			err = sh.sql(strings.TrimSpace(strings.TrimPrefix(line, name)))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"scope [all|season:<id>|game:<id>]", "show or change the session scope"},
		{"games", "list all stored games"},
		{"pending", "list games that are not complete"},
		{"lineup <id>", "show one lineup in scope"},
		{"lineup <p1,p2,p3,p4,p5>", "same, by its five players"},
		{"lineups [team]", "list lineups in scope"},
		{"onoff [player]", "on/off split of one player, or all"},
		{"stints <game> <player>", "a player's stints in a game"},
		{"intervals <game> [size]", "team ratings per possession window"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func (sh *shell) setScope(args []string) error {
	if len(args) == 0 {
		cHeader.Printf("scope: %s\n", sh.scope)
		return nil
	}
	scope, err := model.ParseScope(args[0])
	if err != nil {
		return err
	}
	sh.scope = scope
	return nil
}

func (sh *shell) games(pending bool) error {
	var games []model.Game
	var err error
	if pending {
		games, err = sh.svc.PendingGames(sh.ctx)
	} else {
		games, err = sh.svc.ListGames(sh.ctx)
	}
	if err != nil {
		return err
	}
	if len(games) == 0 {
		cMuted.Println("No games.")
		return nil
	}
	report.PrintGames(os.Stdout, games)
	return nil
}

func (sh *shell) lineup(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: lineup <id> | lineup <p1,p2,p3,p4,p5>")
	}
	id := args[0]
	if strings.Contains(id, ",") {
		lid, err := sh.svc.LineupIdentity(strings.Split(id, ","))
		if err != nil {
			return err
		}
		id = string(lid)
	}
	agg, err := sh.svc.LineupStats(sh.ctx, id, sh.scope)
	if err != nil {
		return err
	}
	report.PrintLineupDetail(os.Stdout, *agg)
	return nil
}

func (sh *shell) lineups(args []string) error {
	f := query.LineupFilter{Limit: 25}
	if len(args) > 0 {
		f.TeamID = args[0]
	}
	aggs, err := sh.svc.ListLineups(sh.ctx, sh.scope, f)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		cMuted.Println("No lineups in scope.")
		return nil
	}
	report.PrintLineupTable(os.Stdout, aggs, "")
	return nil
}

func (sh *shell) onoff(args []string) error {
	if len(args) == 0 {
		aggs, err := sh.svc.ListOnOff(sh.ctx, sh.scope, 0, 25)
		if err != nil {
			return err
		}
		report.PrintOnOffTable(os.Stdout, aggs)
		return nil
	}
	agg, err := sh.svc.OnOffDifferential(sh.ctx, args[0], sh.scope)
	if err != nil {
		return err
	}
	report.PrintOnOffDetail(os.Stdout, *agg)
	return nil
}

func (sh *shell) stints(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: stints <game> <player>")
	}
	_, stints, err := sh.svc.Stints(sh.ctx, args[1], args[0])
	if err != nil {
		return err
	}
	report.PrintStintTable(os.Stdout, stints)
	return nil
}

func (sh *shell) intervals(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: intervals <game> [size]")
	}
	size := 25
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid size %q", args[1])
		}
		size = n
	}
	windows, err := sh.svc.PossessionIntervals(sh.ctx, args[0], size)
	if err != nil {
		return err
	}
	report.PrintWindowTable(os.Stdout, windows)
	return nil
}

func (sh *shell) sql(q string) error {
	if q == "" {
		return fmt.Errorf("usage: sql <query>")
	}
	cols, rows, err := sh.db.QueryRaw(sh.ctx, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return nil
	}
	report.PrintRaw(os.Stdout, cols, rows)
	return nil
}
