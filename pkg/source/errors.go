package source

import "errors"

var (
	// ErrClosed indicates the source was closed.
	ErrClosed = errors.New("source closed")
	// ErrEmpty indicates no byte is buffered.
	ErrEmpty = errors.New("no byte buffered")
)
