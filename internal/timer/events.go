package timer

import (
	"time"

	"ttm/internal/ledger"
	"ttm/internal/logging"
)

// EventKind names a registry change.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventStopped  EventKind = "stopped"
	EventRestored EventKind = "restored"
	EventTick     EventKind = "tick"
)

// Event is published to subscribers after every registry mutation and tick.
type Event struct {
	Kind      EventKind        `json:"kind"`
	ProjectID string           `json:"project_id,omitempty"`
	Entry     ledger.TimeEntry `json:"entry"`
	Revision  uint64           `json:"revision"`
	Tick      uint64           `json:"tick"`
	At        time.Time        `json:"at"`
}

// Transition describes the outcome of Start, Stop, or Toggle. Changed is false
// for no-ops; Running is the project's state afterwards.
type Transition struct {
	ProjectID string           `json:"project_id"`
	Changed   bool             `json:"changed"`
	Running   bool             `json:"running"`
	Entry     ledger.TimeEntry `json:"entry"`
}

type subscriber struct {
	ch      chan Event
	dropped uint64
}

func (r *Registry) publishLocked(evt Event) {
	evt.Revision = r.revision
	evt.Tick = r.ticker.Count()
	if evt.At.IsZero() {
		evt.At = r.now()
	}
	for _, sub := range r.subs {
		select {
		case sub.ch <- evt:
		default:
			sub.dropped++
		}
	}
}

// Subscribe registers a listener with the given channel buffer. The returned
// cancel func unregisters it and closes the channel.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = &subscriber{ch: ch}

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub.ch)
			if sub.dropped > 0 {
				r.logger.Debug("subscriber dropped events", logging.Uint64("dropped", sub.dropped))
			}
		}
	}
}
