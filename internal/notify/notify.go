package notify

import (
	"context"
	"sync"
)

// Event announces a newly submitted request to listeners such as the
// department head's live dashboard. It carries only what the dashboard row
// shows, never the full justification text.
type Event struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Roll    string `json:"roll"`
	Summary string `json:"summary"`
}

// Notifier broadcasts submission events. Delivery is best-effort; callers
// must treat a publish failure as log-worthy, never as a request failure.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryNotifier records events in-process. It backs tests and deployments
// without a broker configured.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryNotifier initializes an empty in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Publish appends the event to the in-process record.
func (m *MemoryNotifier) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryNotifier) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
