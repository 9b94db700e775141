package vanishing

import "errors"

var (
	// ErrNoLines means the line detector produced no segments.
	ErrNoLines = errors.New("no lines detected")

	// ErrNoIntersection means every line pair was parallel or met outside the image.
	ErrNoIntersection = errors.New("no valid intersection")

	// ErrOutOfBounds means the best candidate failed the final bounds check.
	ErrOutOfBounds = errors.New("vanishing point outside image bounds")
)

// IsNotFound reports whether err is one of the "no vanishing point" outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoLines) ||
		errors.Is(err, ErrNoIntersection) ||
		errors.Is(err, ErrOutOfBounds)
}
