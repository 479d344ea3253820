package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTransport scripts connect/deliver outcomes per call and records all
// transport activity. The connection manager serializes every call, so no
// internal locking is needed.
type fakeTransport struct {
	connectErrs []error
	deliverErrs []error
	retrying    bool

	connected    bool
	connectCalls int
	deliverCalls int
	closeCalls   int
	delivered    []Event
	bodies       [][]byte
}

func (f *fakeTransport) Connect(context.Context) error {
	f.connectCalls++
	if f.connectCalls <= len(f.connectErrs) {
		if err := f.connectErrs[f.connectCalls-1]; err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Healthy() bool { return f.connected }

func (f *fakeTransport) Deliver(_ context.Context, evt Event, body []byte) error {
	f.deliverCalls++
	if f.deliverCalls <= len(f.deliverErrs) {
		if err := f.deliverErrs[f.deliverCalls-1]; err != nil {
			return err
		}
	}
	f.delivered = append(f.delivered, evt)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeTransport) RetryDeliver() bool { return f.retrying }

func (f *fakeTransport) Close() error {
	f.closeCalls++
	f.connected = false
	return nil
}

// newTestConnManager wires a manager whose sleeps are recorded instead of
// slept.
func newTestConnManager(tr Transport, attempts int) (*connManager, *[]time.Duration) {
	c := newConnManager(tr, attempts, 10*time.Millisecond, nil)
	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps
}

func TestEnsureConnectedRetriesWithLinearBackoff(t *testing.T) {
	boom := errors.New("dial refused")
	tr := &fakeTransport{connectErrs: []error{boom, boom, boom}}
	c, sleeps := newTestConnManager(tr, 3)

	err := c.ensureConnected(context.Background())
	if err == nil {
		t.Fatalf("expected connection error")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
	if connErr.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", connErr.Attempts)
	}
	if tr.connectCalls != 3 {
		t.Fatalf("connect calls = %d, want 3", tr.connectCalls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, (*sleeps)[i], want[i])
		}
	}
}

func TestEnsureConnectedStopsOnFirstSuccess(t *testing.T) {
	tr := &fakeTransport{connectErrs: []error{errors.New("transient")}}
	c, sleeps := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected: %v", err)
	}
	if tr.connectCalls != 2 {
		t.Fatalf("connect calls = %d, want 2", tr.connectCalls)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("sleeps = %v, want exactly one", *sleeps)
	}
}

func TestEnsureConnectedReusesHealthyConnection(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("first ensureConnected: %v", err)
	}
	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("second ensureConnected: %v", err)
	}
	if tr.connectCalls != 1 {
		t.Fatalf("connect calls = %d, want 1 (idempotent fast path)", tr.connectCalls)
	}
}

func TestEnsureConnectedAbortsOnPermanentError(t *testing.T) {
	tr := &fakeTransport{connectErrs: []error{permanent(errors.New("bad url"))}}
	c, sleeps := newTestConnManager(tr, 3)

	err := c.ensureConnected(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if tr.connectCalls != 1 {
		t.Fatalf("connect calls = %d, want 1 (no retries on permanent error)", tr.connectCalls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
}

func TestEnsureConnectedFailsFastWhenClosed(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestConnManager(tr, 3)
	c.close()

	if err := c.ensureConnected(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if tr.connectCalls != 0 {
		t.Fatalf("connect calls = %d, want 0", tr.connectCalls)
	}
}

func TestDeliverInvalidatesConnectionWithoutRetry(t *testing.T) {
	tr := &fakeTransport{deliverErrs: []error{errors.New("channel error")}}
	c, sleeps := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected: %v", err)
	}
	err := c.deliver(context.Background(), Event{EventType: "workout.created"}, nil)
	var delErr *DeliveryError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if tr.deliverCalls != 1 {
		t.Fatalf("deliver calls = %d, want 1 (no in-call retry)", tr.deliverCalls)
	}
	if tr.closeCalls != 1 {
		t.Fatalf("close calls = %d, want 1 (connection discarded)", tr.closeCalls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}

	// The next call reconnects from scratch.
	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if tr.connectCalls != 2 {
		t.Fatalf("connect calls = %d, want 2", tr.connectCalls)
	}
}

func TestDeliverRetriesForRetryingTransport(t *testing.T) {
	tr := &fakeTransport{retrying: true, deliverErrs: []error{errors.New("throttled")}}
	c, sleeps := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected: %v", err)
	}
	if err := c.deliver(context.Background(), Event{EventType: "workout.created"}, nil); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if tr.deliverCalls != 2 {
		t.Fatalf("deliver calls = %d, want 2", tr.deliverCalls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 10*time.Millisecond {
		t.Fatalf("sleeps = %v, want [10ms]", *sleeps)
	}
	if tr.closeCalls != 0 {
		t.Fatalf("close calls = %d, want 0 (retrying policy keeps the connection)", tr.closeCalls)
	}
}

func TestDeliverExhaustsRetries(t *testing.T) {
	boom := errors.New("unavailable")
	tr := &fakeTransport{retrying: true, deliverErrs: []error{boom, boom, boom}}
	c, _ := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected: %v", err)
	}
	err := c.deliver(context.Background(), Event{EventType: "workout.created"}, nil)
	var delErr *DeliveryError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if tr.deliverCalls != 3 {
		t.Fatalf("deliver calls = %d, want 3", tr.deliverCalls)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestConnManager(tr, 3)

	if err := c.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected: %v", err)
	}
	c.close()
	c.close()
	if tr.closeCalls != 1 {
		t.Fatalf("close calls = %d, want 1", tr.closeCalls)
	}
	if !c.closed() {
		t.Fatalf("manager should report closed")
	}
}
