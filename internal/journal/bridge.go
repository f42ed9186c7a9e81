package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/tickets"
)

// appendTimeout bounds one journal write made on behalf of a mutation.
const appendTimeout = 2 * time.Second

// Bridge records ticket store events in the journal.
type Bridge struct {
	journal *Journal
	logger  *zap.Logger
}

// NewBridge returns an observer that journals every ticket event. It
// returns nil when j is nil, so callers can skip registration.
func NewBridge(j *Journal) *Bridge {
	if j == nil {
		return nil
	}
	return &Bridge{journal: j, logger: j.logger}
}

// OnTicketEvent implements tickets.Observer. Failures are logged and
// never reach the mutation that triggered them.
func (b *Bridge) OnTicketEvent(e tickets.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	_, err := b.journal.Append(ctx, Entry{
		Kind:    string(e.Kind),
		Project: e.Project,
		Key:     e.Key,
		Title:   e.Title,
		Status:  string(e.Status),
		Fields:  e.Fields,
		At:      e.At,
	})
	if err != nil {
		b.logger.Warn("recording ticket event",
			zap.String("key", e.Key),
			zap.String("event", string(e.Kind)),
			zap.Error(err))
	}
}
