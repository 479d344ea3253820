package events

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned once a publisher has been closed; closed is
	// terminal and no later call touches the transport.
	ErrClosed = errors.New("publisher is closed")

	// ErrNoOrganizationID is returned when neither the call nor the
	// configured resolver yields an organization id. Publishes without an
	// organization are skipped, not failed.
	ErrNoOrganizationID = errors.New("no organization id available")

	errNotConnected = errors.New("transport is not connected")
)

// ConfigError reports an invalid or incomplete publisher configuration.
// It is raised at construction time and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid publisher config: " + e.Reason }

// ValidationError reports event data that failed its schema check.
type ValidationError struct {
	EventType  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event validation failed for %s: %s", e.EventType, strings.Join(e.Violations, "; "))
}

// ConnectionError reports a transport connection that could not be
// established after exhausting the configured retry attempts.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DeliveryError reports a send the transport rejected after a connection
// was available.
type DeliveryError struct {
	EventType string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.EventType, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// permanentError marks connect failures that retrying cannot fix, such as
// a malformed URL or unusable credentials configuration.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
