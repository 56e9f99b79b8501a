package errkind

import (
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew_SentinelsOfOneClassStayDistinct(t *testing.T) {
	notFound := New("lineup not found", Query)
	malformed := New("malformed lineup", Query)
	badSize := New("bad size", Query, Config)

	err := crerr.Wrapf(notFound, "lineup %s", "L1")
	assert.True(t, crerr.Is(err, notFound))
	assert.False(t, crerr.Is(err, malformed))
	assert.False(t, crerr.Is(err, badSize))
	assert.True(t, IsQuery(err))
	assert.False(t, IsConfig(err))
	assert.False(t, IsFatal(err))

	err = crerr.Wrap(crerr.Wrap(badSize, "intervals"), "game g1")
	assert.True(t, crerr.Is(err, badSize))
	assert.False(t, crerr.Is(err, notFound))
	assert.True(t, IsQuery(err))
	assert.True(t, IsConfig(err))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil, Recoverable))

	own := crerr.New("disk busy")
	err := Classify(crerr.Wrap(own, "commit"), Recoverable)
	assert.True(t, IsRecoverable(err))
	assert.True(t, crerr.Is(err, own))
	assert.False(t, IsFatal(err))
}
