package timeline

import "errors"

var (
	// ErrSourceUnavailable indicates the remote or local asset source failed;
	// the affected bucket stays retryable.
	ErrSourceUnavailable = errors.New("asset source unavailable")
	// ErrNotFound indicates an index or asset id has no resolution.
	ErrNotFound = errors.New("asset not found")
	// ErrOutOfRange is returned for a flat index beyond the total asset count.
	ErrOutOfRange = errors.New("index out of range")
	// ErrClosed is returned when the engine has been shut down.
	ErrClosed = errors.New("timeline engine closed")
)
