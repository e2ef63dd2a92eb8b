package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/storyboard/internal/timeline"
)

// Registration errors. Both are configuration-time failures: the scenario
// does not load.
var (
	// ErrDuplicateStory is returned when a story id is registered twice.
	ErrDuplicateStory = errors.New("duplicate story id")

	// ErrBoardSealed is returned when a story is registered after the first Step.
	ErrBoardSealed = errors.New("board is sealed: stories must be registered before the first step")
)

// RuntimeError reports a violation of the kernel contract detected while
// stepping. When Step returns one, nothing was evaluated or mutated.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Tick is the tick the kernel asked for.
	Tick timeline.Tick

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTickRegression indicates Step was called with a tick that is not
	// after the previous one.
	ErrCodeTickRegression RuntimeErrorCode = "TICK_REGRESSION"
)

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s (tick=%s)", e.Code, e.Message, e.Tick)
}

// IsTickRegression reports whether err is a tick regression error.
func IsTickRegression(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeTickRegression
	}
	return false
}

// NewTickRegressionError creates a RuntimeError for a non-increasing tick.
func NewTickRegressionError(tick, last timeline.Tick) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTickRegression,
		Message: fmt.Sprintf("tick %s is not after last tick %s", tick, last),
		Tick:    tick,
		Details: map[string]string{
			"last_tick": fmt.Sprintf("%d", last),
		},
	}
}
