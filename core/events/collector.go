package events

// Collector is an Emitter that buffers events for the duration of one call so
// the dispatcher can hand them back to the invoker. It is not safe for
// concurrent use; the execution model serialises calls.
type Collector struct {
	events []Event
}

// NewCollector returns an empty event collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(ev Event) {
	if c == nil || ev == nil {
		return
	}
	c.events = append(c.events, ev)
}

// Drain returns the buffered events and resets the collector.
func (c *Collector) Drain() []Event {
	if c == nil {
		return nil
	}
	drained := c.events
	c.events = nil
	return drained
}
