package tickets

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EventKind names what happened to a ticket.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event describes one successful mutation.
type Event struct {
	Kind    EventKind
	Project string
	Key     string
	Title   string
	Status  Status
	// Fields lists what an update touched: attribute names, "status", or
	// "section:<heading>".
	Fields []string
	At     time.Time
}

// Observer is notified after a mutation has been written. Implementations
// must not block for long; they run on the caller's goroutine.
type Observer interface {
	OnTicketEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnTicketEvent calls f(e).
func (f ObserverFunc) OnTicketEvent(e Event) { f(e) }

// notify delivers e to every observer. A panicking observer is logged and
// skipped; it never fails the mutation that triggered it.
func (s *FileStore) notify(e Event) {
	if e.At.IsZero() {
		e.At = timeNow().UTC()
	}
	for _, obs := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("ticket observer panicked",
						zap.String("key", e.Key),
						zap.String("event", string(e.Kind)),
						zap.String("panic", fmt.Sprint(r)))
				}
			}()
			obs.OnTicketEvent(e)
		}()
	}
}
