package budget

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType classifies visibility events emitted by the engine.
type EventType string

const (
	// EventZoneTransition fires when a bucket's zone changes during an
	// evaluation or a topup.
	EventZoneTransition EventType = "zone_transition"

	// EventOverrun fires when a report-only burn drives a bucket's
	// remaining balance negative.
	EventOverrun EventType = "overrun"

	// EventFailOpen fires when the ledger was unavailable and the
	// configured fail-open policy let the action proceed unaccounted.
	EventFailOpen EventType = "fail_open"

	// EventTopup fires when an out-of-band credit is applied.
	EventTopup EventType = "topup"

	// EventSnapshot fires from the scheduled reporter for each live
	// bucket entry.
	EventSnapshot EventType = "snapshot"
)

// Event is the visibility record handed to the observability collaborator.
// The engine guarantees production, not transport or storage.
type Event struct {
	// ID is a unique event id.
	ID string

	// Type classifies the event.
	Type EventType

	// Profile is the profile the event relates to.
	Profile string

	// BucketKey is the resolved ledger key, when the event concerns one
	// bucket.
	BucketKey string

	// Zone is the bucket's zone after the triggering operation.
	Zone Zone

	// PrevZone is the zone before the operation, for transitions.
	PrevZone Zone

	// SpentFraction is the bucket's spent fraction after the operation.
	SpentFraction float64

	// Mode is the accounting mode in effect when the event fired.
	Mode ExhaustMode

	// Time is when the event was produced.
	Time time.Time
}

// Emitter consumes visibility events. Implementations must not block;
// the engine emits synchronously on the evaluation path.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) { f(e) }

// LogEmitter writes events to a structured logger. This is the default
// emitter when none is configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter that logs each event. A nil logger
// falls back to slog.Default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger.With("component", "budget.events")}
}

// Emit logs the event at a level matched to its severity.
func (l *LogEmitter) Emit(e Event) {
	attrs := []any{
		"event_id", e.ID,
		"type", string(e.Type),
		"profile", e.Profile,
		"bucket_key", e.BucketKey,
		"zone", e.Zone.String(),
		"spent_fraction", e.SpentFraction,
		"mode", string(e.Mode),
	}
	switch e.Type {
	case EventOverrun, EventFailOpen:
		l.logger.Warn("budget event", attrs...)
	case EventZoneTransition:
		if e.Zone >= ZoneOrange {
			l.logger.Warn("budget event", attrs...)
		} else {
			l.logger.Info("budget event", attrs...)
		}
	default:
		l.logger.Info("budget event", attrs...)
	}
}

// MultiEmitter fans one event out to several emitters.
func MultiEmitter(emitters ...Emitter) Emitter {
	return EmitterFunc(func(e Event) {
		for _, em := range emitters {
			em.Emit(e)
		}
	})
}

// newEvent stamps a fresh event with id and time.
func newEvent(t EventType, profile string) Event {
	return Event{
		ID:      uuid.New().String(),
		Type:    t,
		Profile: profile,
		Time:    time.Now(),
	}
}
