package ingest

import (
	"github.com/pable/go-lineup-metrics/internal/ingest/ingesttest"
)

var (
	newGame  = ingesttest.NewGame
	scripted = ingesttest.Scripted
	jsonLine = ingesttest.JSONLine
)

func input(b *ingesttest.Builder) GameInput {
	return GameInput{GameID: b.GameID, Events: b.Events}
}
