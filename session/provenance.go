package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a provenance event.
type EventType string

const (
	// EventCreate records a flow file created inside a session
	EventCreate EventType = "CREATE"
	// EventSend records a flow file transferred to a relationship
	EventSend EventType = "SEND"
	// EventDrop records a flow file removed from the flow
	EventDrop EventType = "DROP"
)

// Event is one provenance record accumulated during a run.
type Event struct {
	ID         string
	Type       EventType
	FlowFileID uint64
	Details    string
	Timestamp  time.Time
}

// Provenance is the append-only event log shared by all sessions of one
// harness instance. Safe for concurrent use.
type Provenance struct {
	mu     sync.Mutex
	events []Event
}

// NewProvenance creates an empty provenance log.
func NewProvenance() *Provenance {
	return &Provenance{}
}

// Record appends an event for the given flow file.
func (p *Provenance) Record(eventType EventType, flowFileID uint64, details string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		FlowFileID: flowFileID,
		Details:    details,
		Timestamp:  time.Now(),
	})
}

// Events returns a copy of all recorded events in record order.
func (p *Provenance) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]Event, len(p.events))
	copy(result, p.events)
	return result
}

// EventsOfType returns a copy of all events of the given type, in record order.
func (p *Provenance) EventsOfType(eventType EventType) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result []Event
	for _, event := range p.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
