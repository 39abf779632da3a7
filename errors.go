package forgehand

import "errors"

var (
	// ErrMaxTurnsExceeded is reported when a run consumes its full turn
	// budget without the model producing a final response.
	ErrMaxTurnsExceeded = errors.New("maximum turns exceeded")

	// ErrBudgetExhausted is reported when the configured spend limit is
	// reached mid-run.
	ErrBudgetExhausted = errors.New("budget exhausted")

	// ErrMissingAPIKey is returned when no API key is configured and none
	// is present in the environment.
	ErrMissingAPIKey = errors.New("missing API key")
)
