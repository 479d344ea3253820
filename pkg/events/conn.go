package events

import (
	"context"
	"sync"
	"time"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateClosed
)

// connManager owns the single live transport connection of a publisher.
// Every read or mutation of the connection, and every delivery that uses
// it, happens while holding its lock, so concurrent publish calls never
// race on establishment or teardown.
type connManager struct {
	mu    sync.Mutex
	state connState

	tr       Transport
	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
	log      Logger
}

func newConnManager(tr Transport, attempts int, delay time.Duration, log Logger) *connManager {
	if attempts < 1 {
		attempts = 1
	}
	return &connManager{
		tr:       tr,
		attempts: attempts,
		delay:    delay,
		sleep:    time.Sleep,
		log:      ensureLogger(log),
	}
}

// ensureConnected returns nil when a healthy connection is available,
// establishing one with bounded linear backoff otherwise. Closed managers
// fail fast without touching the transport.
func (c *connManager) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		c.log.WarnObj("publisher is closed, cannot connect", "conn_closed", nil)
		return ErrClosed
	}
	if c.state == stateConnected && c.tr.Healthy() {
		return nil
	}
	c.state = stateDisconnected

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		c.log.InfoObj("connecting to transport", "conn_attempt", map[string]any{
			"attempt": attempt,
			"max":     c.attempts,
		})
		err := c.tr.Connect(ctx)
		if err == nil {
			c.state = stateConnected
			c.log.InfoObj("transport connected", "conn_established", map[string]any{
				"attempt": attempt,
			})
			return nil
		}
		if isPermanent(err) {
			c.log.ErrorObj("unrecoverable error during connect", "conn_error", map[string]any{
				"error": err.Error(),
			})
			return err
		}
		lastErr = err
		c.log.WarnObj("connection attempt failed", "conn_retry", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < c.attempts {
			c.sleep(c.delay * time.Duration(attempt))
		}
	}
	return &ConnectionError{Attempts: c.attempts, Err: lastErr}
}

// deliver sends one envelope under the connection lock, applying the
// transport's delivery policy: retrying transports get the same bounded
// linear backoff as connection establishment, non-retrying transports have
// the connection discarded on error so the next call reconnects.
func (c *connManager) deliver(ctx context.Context, evt Event, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return ErrClosed
	}
	if c.state != stateConnected {
		return &DeliveryError{EventType: evt.EventType, Err: errNotConnected}
	}

	if !c.tr.RetryDeliver() {
		if err := c.tr.Deliver(ctx, evt, body); err != nil {
			c.log.ErrorObj("delivery failed, discarding connection", "deliver_error", map[string]any{
				"event_type": evt.EventType,
				"error":      err.Error(),
			})
			c.invalidateLocked()
			return &DeliveryError{EventType: evt.EventType, Err: err}
		}
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.tr.Deliver(ctx, evt, body)
		if err == nil {
			return nil
		}
		lastErr = err
		c.log.WarnObj("delivery attempt failed", "deliver_retry", map[string]any{
			"event_type": evt.EventType,
			"attempt":    attempt,
			"max":        c.attempts,
			"error":      err.Error(),
		})
		if attempt < c.attempts {
			c.sleep(c.delay * time.Duration(attempt))
		}
	}
	return &DeliveryError{EventType: evt.EventType, Err: lastErr}
}

// invalidateLocked tears down the live handle so the next call reconnects
// from scratch. Callers must hold the lock.
func (c *connManager) invalidateLocked() {
	if err := c.tr.Close(); err != nil {
		c.log.WarnObj("error closing transport", "conn_close_error", map[string]any{
			"error": err.Error(),
		})
	}
	c.state = stateDisconnected
}

// close transitions to the terminal Closed state. Close failures are
// logged, never raised. Idempotent.
func (c *connManager) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	if c.state == stateConnected {
		if err := c.tr.Close(); err != nil {
			c.log.WarnObj("error closing transport", "conn_close_error", map[string]any{
				"error": err.Error(),
			})
		}
	}
	c.state = stateClosed
}

func (c *connManager) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosed
}
