package wine

import "errors"

var (
	ErrWineNotFound = errors.New("wine not found")
	// ErrQuantityConflict means a conditional decrement found less stock than requested.
	ErrQuantityConflict = errors.New("wine quantity changed concurrently")
)
