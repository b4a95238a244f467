//go:build unit

package errs_test

import (
	"errors"
	"testing"

	"travelcore/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

func TestMark(t *testing.T) {
	sentinel := errs.New("widget not found")

	t.Run("sentinel matches through the standard matcher", func(t *testing.T) {
		err := errs.Mark(errs.New("no rows in result set"), sentinel)
		assert.True(t, errors.Is(err, sentinel))
	})

	t.Run("cause stays matchable", func(t *testing.T) {
		cause := errs.New("no rows in result set")
		err := errs.Mark(cause, sentinel)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("nil cause degrades to the sentinel", func(t *testing.T) {
		assert.ErrorIs(t, errs.Mark(nil, sentinel), sentinel)
	})
}

func TestWrapNilPassthrough(t *testing.T) {
	assert.NoError(t, errs.Wrap(nil, "ignored"))
}
