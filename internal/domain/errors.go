package domain

import "errors"

var (
	// ErrNotFound covers both a missing record and one owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNoQuizAvailable is returned when a folder has no question-bearing concepts.
	ErrNoQuizAvailable = errors.New("no concepts with quiz questions found in this folder")
	// ErrUnsupportedImage indicates an upload that is not an accepted raster image.
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrAttemptNotFound indicates a live quiz action without a started attempt.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
)
