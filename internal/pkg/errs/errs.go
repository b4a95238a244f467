package errs

import (
	"fmt"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func New(msg string) error {
	return cr.New(msg)
}

// Mark associates err with a sentinel so errors.Is(err, markErr) holds
// without discarding the original cause chain. The sentinel is wrapped into
// the chain itself; a library-level mark alone is invisible to the standard
// library's matcher.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return fmt.Errorf("%w: %w", markErr, err)
}
