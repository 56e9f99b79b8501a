// Package lineup resolves the canonical identity of five on-court players.
package lineup

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

// Size is the number of players a lineup must have.
const Size = 5

const idPrefix = "L"

var (
	ErrInvalidCardinality = errkind.New("lineup must have exactly 5 distinct players", errkind.IngestionFatal)
	ErrMalformedID        = errkind.New("malformed lineup identity", errkind.Query)
)

// Resolve sorts the players lexicographically and hashes them into a
// LineupID. The same five players give the same identity in any order.
func Resolve(teamID string, players []string) (model.Lineup, error) {
	if len(players) != Size {
		return model.Lineup{}, crerr.Wrapf(ErrInvalidCardinality, "team %s: got %d players", teamID, len(players))
	}

	var l model.Lineup
	copy(l.Players[:], players)
	sort.Strings(l.Players[:])
	for i, p := range l.Players {
		if p == "" {
			return model.Lineup{}, crerr.Wrapf(ErrInvalidCardinality, "team %s: empty player id", teamID)
		}
		if i > 0 && l.Players[i-1] == p {
			return model.Lineup{}, crerr.Wrapf(ErrInvalidCardinality, "team %s: duplicate player %s", teamID, p)
		}
	}
	l.TeamID = teamID
	l.ID = hashPlayers(l.Players)
	return l, nil
}

// ID is Resolve without the team, for callers that only need the identity.
func ID(players []string) (model.LineupID, error) {
	l, err := Resolve("", players)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

func hashPlayers(sorted [5]string) model.LineupID {
	// Length-prefixed so that no two player sets share a hash input.
	d := xxhash.New()
	for _, p := range sorted {
		_, _ = d.WriteString(strconv.Itoa(len(p)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(p)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], d.Sum64())
	return model.LineupID(idPrefix + hex.EncodeToString(buf[:]))
}

// ParseID checks that s has the shape of a LineupID. It says nothing about
// whether the lineup was ever seen.
func ParseID(s string) (model.LineupID, error) {
	if len(s) != len(idPrefix)+16 || !strings.HasPrefix(s, idPrefix) {
		return "", crerr.Wrapf(ErrMalformedID, "%q", s)
	}
	if _, err := hex.DecodeString(s[len(idPrefix):]); err != nil {
		return "", crerr.Wrapf(ErrMalformedID, "%q", s)
	}
	return model.LineupID(s), nil
}
