// Package audit records the engine's state transitions as newline-delimited
// records of the form {ts, event, payload, meta}.
package audit

import (
	"errors"
	"log/slog"
	"time"
)

// Record is one audit entry.
type Record struct {
	TS      time.Time      `json:"ts"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Sink persists records. Implementations must be safe for use by several
// engines at once.
type Sink interface {
	Write(r Record) error
	Close() error
}

// Emitter stamps records with the game id and current tick before handing
// them to a sink. A nil *Emitter drops everything.
type Emitter struct {
	sink      Sink
	gameID    string
	iteration int
	gameTime  float64
	now       func() time.Time
	logger    *slog.Logger
}

func NewEmitter(sink Sink, gameID string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = Discard{}
	}
	return &Emitter{sink: sink, gameID: gameID, now: time.Now, logger: logger}
}

// SetTick updates the tick stamp carried in meta.
func (e *Emitter) SetTick(iteration int, gameTime float64) {
	if e == nil {
		return
	}
	e.iteration = iteration
	e.gameTime = gameTime
}

// Emit writes a record. Sink failures are logged, never returned: audit
// must not take the tick down.
func (e *Emitter) Emit(event string, payload map[string]any) {
	if e == nil {
		return
	}
	r := Record{
		TS:      e.now().UTC(),
		Event:   event,
		Payload: payload,
		Meta: map[string]any{
			"game_id":   e.gameID,
			"iteration": e.iteration,
			"game_time": e.gameTime,
		},
	}
	if err := e.sink.Write(r); err != nil {
		e.logger.Warn("audit write failed", "event", event, "error", err)
	}
}

// Discard drops all records.
type Discard struct{}

func (Discard) Write(Record) error { return nil }
func (Discard) Close() error       { return nil }

// Multi fans out to several sinks. Write reports every failure.
type Multi []Sink

func (m Multi) Write(r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink mirrors records into a structured logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Write(r Record) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Debug("audit", "event", r.Event, "payload", r.Payload, "meta", r.Meta)
	return nil
}

func (LogSink) Close() error { return nil }
