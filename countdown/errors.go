package countdown

import "errors"

var (
	ErrInvalidDuration = errors.New("countdown duration must be positive")
	ErrAlreadyRunning  = errors.New("countdown already running")
	ErrNotRunning      = errors.New("countdown not running")
	ErrNotPaused       = errors.New("countdown not paused")
)
