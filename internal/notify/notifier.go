package notify

import "sync"

// Moderation event types sent to the notification channel.
const (
	EventReviewFirstApproval = "review.first_approval"
	EventReviewApproved      = "review.approved"
	EventReviewRejected      = "review.rejected"
	EventPlayerEditApproved  = "player_edit.approved"
	EventPlayerEditRejected  = "player_edit.rejected"
	EventEquipmentApproved   = "equipment_submission.approved"
	EventEquipmentRejected   = "equipment_submission.rejected"
)

// Notifier delivers a moderation event to an outbound channel. Delivery is
// best-effort: callers log failures and move on, they never roll back the
// state transition that produced the event.
type Notifier interface {
	Send(event string, payload map[string]interface{}) error
}

// Delivery is one recorded notification.
type Delivery struct {
	Event   string
	Payload map[string]interface{}
}

// Memory stores deliveries in memory for inspection in tests.
type Memory struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewMemory constructs an empty memory notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Send records the delivery.
func (m *Memory) Send(event string, payload map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, Delivery{Event: event, Payload: payload})
	return nil
}

// Deliveries returns a copy of deliveries seen so far.
func (m *Memory) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}
