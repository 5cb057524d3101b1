package contract

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventKind names what happened to a record.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventEdited     EventKind = "edited"
	EventTransition EventKind = "transition"
	EventDeleted    EventKind = "deleted"
	EventDownloaded EventKind = "downloaded"
	EventPrinted    EventKind = "printed"
)

// Event is a confirmation sent after a successful operation.
type Event struct {
	Kind     EventKind
	RecordID string
	OfficeID string
	From, To Status
	Message  string
	At       time.Time
}

// Notifier delivers confirmations to whoever triggered an operation.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// LogNotifier writes confirmations to the structured log.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier returns a notifier logging through logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) {
	ev := n.log.Info().
		Str("event", string(e.Kind)).
		Str("contract", e.RecordID).
		Str("office", e.OfficeID).
		Time("at", e.At)
	if e.From != "" {
		ev = ev.Str("from", string(e.From))
	}
	if e.To != "" {
		ev = ev.Str("to", string(e.To))
	}
	ev.Msg(e.Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event)

func (f NotifierFunc) Notify(ctx context.Context, e Event) {
	f(ctx, e)
}
