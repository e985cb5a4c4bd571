// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import "time"

// OrderCreatedEvent is published after an order and its tickets have been
// committed.  It carries enough for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type OrderCreatedEvent struct {
	EventID   string        `json:"event_id"`
	OrderID   uint64        `json:"order_id"`
	UserID    uint64        `json:"user_id"`
	Tickets   []TicketEvent `json:"tickets"`
	CreatedAt time.Time     `json:"created_at"`
}

// TicketEvent identifies one booked slot.
type TicketEvent struct {
	TicketID  uint64 `json:"ticket_id"`
	JourneyID uint64 `json:"journey_id"`
	Cargo     int    `json:"cargo"`
	Seat      int    `json:"seat"`
}
