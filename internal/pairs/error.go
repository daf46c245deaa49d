package pairs

import "errors"

var (
	ErrInvalidDimension  = errors.New("invalid board dimension")
	ErrAlphabetExhausted = errors.New("alphabet exhausted")
)

// AssertionError is raised (as a panic value) when an adapter addresses a
// tile that does not exist on the current board.
type AssertionError struct {
	message string
}

// [AssertionError] implements [error]
func (e AssertionError) Error() string {
	return e.message
}
