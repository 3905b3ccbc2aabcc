package options

import "errors"

var (
	// ErrEmptyData means no contracts matched the requested scope. Callers
	// render a "no data" state; zeros here would be misleading.
	ErrEmptyData = errors.New("no contracts in scope")

	// ErrInvalidScope means a smile was requested over contracts spanning
	// more than one expiration. The facade prevents this on production
	// paths; ComputeSmile still guards defensively.
	ErrInvalidScope = errors.New("smile requires a single expiration")
)
