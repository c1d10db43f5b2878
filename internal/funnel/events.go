package funnel

// EventSink receives business events fired on funnel milestones. The
// concrete implementation lives in the tracker package; the core only
// guarantees when events fire, not their wire format.
type EventSink interface {
	Event(name string, params map[string]any)
}

// NoopSink is used by tests and by callers that do not track events.
type NoopSink struct{}

func (NoopSink) Event(string, map[string]any) {}
