package rx

import "errors"

var (
	// ErrNoSource indicates the configuration has no byte source.
	ErrNoSource = errors.New("no byte source")
)
