package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a match query with missing required fields.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSourceUnavailable signals that a source's circuit breaker is open.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrFetchExhausted signals that all fetch retries were consumed.
	ErrFetchExhausted = errors.New("fetch retries exhausted")
	// ErrStructureChanged signals that a source page no longer matches the
	// expected markup and was skipped instead of mis-parsed.
	ErrStructureChanged = errors.New("page structure changed")
	// ErrGeneratorError signals a lesson generator failure.
	ErrGeneratorError = errors.New("generator error")
)
