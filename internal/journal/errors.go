package journal

import "errors"

var (
	ErrNotFound     = errors.New("run not found")
	ErrInvalidRun   = errors.New("invalid run record")
	ErrInvalidLimit = errors.New("limit must be positive")
)
