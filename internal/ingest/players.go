package ingest

import (
	"bufio"
	"bytes"
	"io"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/pable/go-lineup-metrics/internal/model"
)

// wirePlayer is one JSONL line of the player attribute file. Absent numbers
// stay absent.
type wirePlayer struct {
	PlayerID   string   `json:"player_id" validate:"required"`
	Name       string   `json:"name"`
	Age        *float64 `json:"age" validate:"omitempty,gt=0,lt=80"`
	HeightIn   *float64 `json:"height_in" validate:"omitempty,gt=0"`
	WeightLb   *float64 `json:"weight_lb" validate:"omitempty,gt=0"`
	Experience *float64 `json:"experience" validate:"omitempty,gte=0"`
}

// ReadPlayers decodes a JSONL file of player attributes.
func ReadPlayers(r io.Reader) ([]model.PlayerAttributes, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	validate := validator.New()

	var out []model.PlayerAttributes
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var w wirePlayer
		if err := strictJSON.Unmarshal(line, &w); err != nil {
			return nil, crerr.Wrapf(ErrSchema, "line %d: %v", n, err)
		}
		if err := validate.Struct(&w); err != nil {
			return nil, crerr.Wrapf(ErrSchema, "line %d: %v", n, err)
		}
		out = append(out, model.PlayerAttributes{
			PlayerID:   w.PlayerID,
			Name:       w.Name,
			Age:        w.Age,
			HeightIn:   w.HeightIn,
			WeightLb:   w.WeightLb,
			Experience: w.Experience,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, crerr.Wrap(err, "read players")
	}
	return out, nil
}
