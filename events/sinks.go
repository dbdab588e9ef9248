package events

import (
	"sort"

	"go.uber.org/zap"
)

// MemorySink records events in order, used by tests to assert transitions.
type MemorySink struct {
	Events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Emit(e Event) {
	m.Events = append(m.Events, e)
}

// Last returns the most recent event or nil when nothing was emitted yet.
func (m *MemorySink) Last() *Event {
	if len(m.Events) == 0 {
		return nil
	}
	return &m.Events[len(m.Events)-1]
}

// OfKind filters the recorded events by kind.
func (m *MemorySink) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range m.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ZapSink writes every event as one structured log line, the daemon's
// explorer feed.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (z *ZapSink) Emit(e Event) {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.String(k, e.Attrs[k]))
	}
	z.log.Info(string(e.Kind), fields...)
}

// Tee fans an event out to several sinks.
type Tee []Sink

func (t Tee) Emit(e Event) {
	for _, s := range t {
		s.Emit(e)
	}
}
