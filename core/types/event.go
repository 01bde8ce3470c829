package types

// Event is the wire form of a domain event produced by a committed operation.
// Attributes carry hex-encoded identifiers and decimal amounts so consumers
// never need the storage encoding.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute or the empty string.
func (e *Event) Attribute(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
