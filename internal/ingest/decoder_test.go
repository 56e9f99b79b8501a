package ingest

import (
	"io"
	"strings"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

func TestReadGames(t *testing.T) {
	var lines []string
	g1 := scripted("g1").Events
	g2 := newGame("g2", "2024").Filler(3).EndPeriod().Events
	for i := 0; i < len(g1) || i < len(g2); i++ {
		if i < len(g1) {
			lines = append(lines, jsonLine(g1[i]))
		}
		if i < len(g2) {
			lines = append(lines, jsonLine(g2[i]))
		}
		lines = append(lines, "")
	}

	games, err := ReadGames(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g1", games[0].GameID)
	assert.Len(t, games[0].Events, len(g1))
	assert.Equal(t, "g2", games[1].GameID)
	assert.Len(t, games[1].Events, len(g2))

	ev := games[0].Events[0]
	assert.Equal(t, model.KindMadeShot, ev.Kind)
	assert.Equal(t, 2, ev.Points)
	assert.Equal(t, []string{"h1", "h2", "h3", "h4", "h5"}, ev.HomeLineup)
}

func TestDecoder_UnknownKindIsNotFatal(t *testing.T) {
	ev := newGame("g1", "2024").Add(model.KindMadeShot, "H", 2).Events[0]
	ev.RawKind = "coach_challenge"

	dec := NewDecoder(strings.NewReader(jsonLine(ev)))
	got, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, model.KindUnknown, got.Kind)
	assert.Equal(t, "coach_challenge", got.RawKind)

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_SchemaViolations(t *testing.T) {
	valid := jsonLine(newGame("g1", "2024").Add(model.KindMadeShot, "H", 2).Events[0])
	cases := map[string]string{
		"unknown field": strings.Replace(valid, `"season"`, `"venue":"x","season"`, 1),
		"missing game":  strings.Replace(valid, `"game_id":"g1"`, `"game_id":""`, 1),
		"same teams":    strings.Replace(valid, `"away_team_id":"A"`, `"away_team_id":"H"`, 1),
		"bad period":    strings.Replace(valid, `"period":1`, `"period":0`, 1),
		"not json":      `{"game_id": `,
		"wrong type":    strings.Replace(valid, `"seq":1`, `"seq":"one"`, 1),
	}
	for name, line := range cases {
		_, err := NewDecoder(strings.NewReader(line)).Next()
		require.Error(t, err, name)
		assert.True(t, crerr.Is(err, ErrSchema), name)
		assert.True(t, errkind.IsFatal(err), name)
		assert.Contains(t, err.Error(), "line 1", name)
	}
}
