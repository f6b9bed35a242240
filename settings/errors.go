package settings

import "errors"

// Sentinel errors for settings operations.
var (
	// ErrInvalidArgument is returned for malformed arguments, before any I/O.
	ErrInvalidArgument = errors.New("settings: invalid argument")
	// ErrInvalidPath is returned when a key path cannot be parsed.
	ErrInvalidPath = errors.New("settings: invalid key path")
	// ErrNotObject is returned when an update meets a non-object value
	// where a container was expected. Nothing is written.
	ErrNotObject = errors.New("settings: not an object")
	// ErrAreaUnavailable is returned when an area has no backing store.
	ErrAreaUnavailable = errors.New("settings: area unavailable")
	// ErrClosed is returned by updates submitted after Close.
	ErrClosed = errors.New("settings: closed")
)
