package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized indicates Send or Receive was called before Init.
	ErrNotInitialized = errors.New("not initialized")
	// ErrClosed indicates the transport has been torn down.
	ErrClosed = errors.New("closed")
	// ErrOverflow indicates received bytes were discarded because the
	// receive buffer was full.
	ErrOverflow = errors.New("receive overflow")
	// ErrNoProgress indicates an I/O primitive transferred zero bytes
	// without reporting an error.
	ErrNoProgress = errors.New("no progress")
)

// ConfigError is a fatal setup failure: the medium could not be opened
// or configured.
type ConfigError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MediumError is an unrecoverable I/O failure reported by the medium,
// e.g. end of stream or a device error.
type MediumError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *MediumError) Error() string {
	return fmt.Sprintf("medium %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *MediumError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}

// IsMediumError reports whether err is or wraps a MediumError.
func IsMediumError(err error) bool {
	var merr *MediumError
	return errors.As(err, &merr)
}
