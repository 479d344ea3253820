package events

import "context"

// Transport is the narrow capability a backend destination provides.
// Implementations are not required to be safe for concurrent use; the
// connection manager serializes every call.
type Transport interface {
	// Connect establishes the underlying connection and declares the
	// destination. Errors marked permanent abort the retry loop
	// immediately.
	Connect(ctx context.Context) error

	// Healthy reports whether the live handle can still deliver. A false
	// result forces reconnection on the next publish.
	Healthy() bool

	// Deliver sends one serialized envelope to the destination.
	Deliver(ctx context.Context, evt Event, body []byte) error

	// RetryDeliver reports whether failed deliveries are retried within
	// the same publish call. Transports returning false have their
	// connection invalidated on delivery error instead, forcing a full
	// reconnect on the next call.
	RetryDeliver() bool

	Close() error
}
