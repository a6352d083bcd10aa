package events

import (
	"time"
)

// Event is a recorded change to a quoting session
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// EventHandler reacts to appended events
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore appends and replays session events
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
}

type sessionEvent struct {
	eventType string
	stream    string
	data      interface{}
	at        time.Time
	version   int
}

func (e sessionEvent) Type() string         { return e.eventType }
func (e sessionEvent) StreamID() string     { return e.stream }
func (e sessionEvent) Data() interface{}    { return e.data }
func (e sessionEvent) Timestamp() time.Time { return e.at }
func (e sessionEvent) Version() int         { return e.version }

// NewEvent creates an unversioned event; the store assigns the version on append
func NewEvent(eventType, streamID string, data interface{}) Event {
	return sessionEvent{
		eventType: eventType,
		stream:    streamID,
		data:      data,
		at:        time.Now(),
	}
}
