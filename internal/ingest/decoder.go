package ingest

import (
	"bufio"
	"bytes"
	"io"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

// ErrSchema is returned for input that does not decode into a valid event.
var ErrSchema = errkind.New("event schema violation", errkind.IngestionFatal)

const maxLineBytes = 1 << 20

var strictJSON = sonic.Config{
	DisallowUnknownFields: true,
	ValidateString:        true,
}.Froze()

// wireEvent is one JSONL line of the upstream play-by-play feed.
type wireEvent struct {
	GameID       string   `json:"game_id" validate:"required"`
	Season       string   `json:"season"`
	Seq          int      `json:"seq" validate:"gte=0"`
	Period       int      `json:"period" validate:"gte=1"`
	Elapsed      float64  `json:"elapsed" validate:"gte=0"`
	Clock        string   `json:"clock"`
	Kind         string   `json:"kind" validate:"required"`
	TeamID       string   `json:"team_id"`
	PlayerID     string   `json:"player_id"`
	Points       int      `json:"points" validate:"gte=0,lte=4"`
	ShotType     string   `json:"shot_type"`
	FinalAttempt bool     `json:"final_attempt"`
	HomeTeamID   string   `json:"home_team_id" validate:"required"`
	AwayTeamID   string   `json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	HomeLineup   []string `json:"home_lineup" validate:"required"`
	AwayLineup   []string `json:"away_lineup" validate:"required"`
	HomeScore    int      `json:"home_score" validate:"gte=0"`
	AwayScore    int      `json:"away_score" validate:"gte=0"`
}

func (w *wireEvent) toModel() model.Event {
	kind, ok := model.ParseEventKind(w.Kind)
	if !ok {
		kind = model.KindUnknown
	}
	return model.Event{
		GameID:       w.GameID,
		Season:       w.Season,
		Seq:          w.Seq,
		Period:       w.Period,
		Elapsed:      w.Elapsed,
		Clock:        w.Clock,
		Kind:         kind,
		RawKind:      w.Kind,
		TeamID:       w.TeamID,
		PlayerID:     w.PlayerID,
		Points:       w.Points,
		ShotType:     w.ShotType,
		FinalAttempt: w.FinalAttempt,
		HomeTeamID:   w.HomeTeamID,
		AwayTeamID:   w.AwayTeamID,
		HomeLineup:   w.HomeLineup,
		AwayLineup:   w.AwayLineup,
		HomeScore:    w.HomeScore,
		AwayScore:    w.AwayScore,
	}
}

// Decoder reads newline-delimited JSON events. Kind strings outside the
// classification table decode as KindUnknown and are flagged later; any
// other schema problem is fatal.
type Decoder struct {
	scanner  *bufio.Scanner
	validate *validator.Validate
	line     int
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{scanner: sc, validate: validator.New()}
}

// Next returns the next event, or io.EOF when the input is exhausted.
// Blank lines are skipped.
func (d *Decoder) Next() (model.Event, error) {
	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var w wireEvent
		if err := strictJSON.Unmarshal(line, &w); err != nil {
			return model.Event{}, crerr.Wrapf(ErrSchema, "line %d: %v", d.line, err)
		}
		if err := d.validate.Struct(&w); err != nil {
			return model.Event{}, crerr.Wrapf(ErrSchema, "line %d: %v", d.line, err)
		}
		return w.toModel(), nil
	}
	if err := d.scanner.Err(); err != nil {
		return model.Event{}, crerr.Wrapf(err, "read line %d", d.line+1)
	}
	return model.Event{}, io.EOF
}

// GameInput is the ordered event stream of one game.
type GameInput struct {
	GameID string
	Events []model.Event
}

// ReadGames decodes every event from r and groups them by game, keeping the
// order in which games and events appear.
func ReadGames(r io.Reader) ([]GameInput, error) {
	dec := NewDecoder(r)
	index := map[string]int{}
	var games []GameInput
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return games, nil
		}
		if err != nil {
			return nil, err
		}
		i, ok := index[ev.GameID]
		if !ok {
			i = len(games)
			index[ev.GameID] = i
			games = append(games, GameInput{GameID: ev.GameID})
		}
		games[i].Events = append(games[i].Events, ev)
	}
}
