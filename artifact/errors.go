package artifact

import "fmt"

var (
	// ErrNotFound is returned when no file is stored under the given URL.
	ErrNotFound = fmt.Errorf("artifact not found")

	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = fmt.Errorf("artifact too large")
)
