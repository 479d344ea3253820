package events

import "context"

// Fanout dispatches each event to every configured destination
// best-effort; one destination failing does not stop the others.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher that fans events out across publishers.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp}
}

// Publish forwards the event to every destination and returns the number
// of destinations that acknowledged it.
func (f *Fanout) Publish(ctx context.Context, eventType string, data map[string]any, opts ...PublishOption) int {
	if f == nil || len(f.publishers) == 0 {
		return 0
	}

	successful := 0
	for _, p := range f.publishers {
		if p.Publish(ctx, eventType, data, opts...) {
			successful++
		}
	}
	return successful
}

// Close closes every destination.
func (f *Fanout) Close() {
	if f == nil {
		return
	}
	for _, p := range f.publishers {
		p.Close()
	}
}

// Size returns the number of active destinations.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
