package model

import "time"

// Order groups the tickets a user booked in one request.  Orders are
// created together with their tickets in a single transaction and are
// immutable afterwards; deleting an order cascades to its tickets.
type Order struct {
	ID        uint64    `db:"id" json:"id"`
	UserID    uint64    `db:"user_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Tickets   []Ticket  `db:"-" json:"tickets"`
}

// Ticket reserves one seat in one cargo of a journey.  The triple
// (JourneyID, Cargo, Seat) is unique across all tickets.
type Ticket struct {
	ID        uint64 `db:"id" json:"id"`
	Cargo     int    `db:"cargo" json:"cargo"`
	Seat      int    `db:"seat" json:"seat"`
	JourneyID uint64 `db:"journey_id" json:"journey"`
	OrderID   uint64 `db:"order_id" json:"-"`
}
