package events

import (
	"sync"

	"go.uber.org/zap"
)

// InMemoryEventStore keeps per-session event streams in memory.
// Handlers run synchronously on append so a session observes its own events in order.
type InMemoryEventStore struct {
	mutex       sync.RWMutex
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	logger      *zap.Logger
}

// NewInMemoryEventStore creates an empty store
func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	versioned := sessionEvent{
		eventType: event.Type(),
		stream:    streamID,
		data:      event.Data(),
		at:        event.Timestamp(),
		version:   len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], versioned)
	handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)
	s.mutex.Unlock()

	for _, handler := range handlers {
		if !handler.CanHandle(versioned.Type()) {
			continue
		}
		if err := handler.Handle(versioned); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("event_type", versioned.Type()),
				zap.String("stream", streamID),
				zap.Error(err))
		}
	}
	return nil
}

// ReadEvents returns the stream's events starting at fromVersion (1-based)
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}

	out := make([]Event, len(events)-fromVersion+1)
	copy(out, events[fromVersion-1:])
	return out, nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

// DropStream forgets a closed session's events
func (s *InMemoryEventStore) DropStream(streamID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.streams, streamID)
}
