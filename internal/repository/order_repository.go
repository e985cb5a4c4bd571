package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// OrderRepo persists orders and their tickets.  Orders are always read
// through the owning user's id; an order of another user behaves exactly
// like a missing one.
type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the handle so the booking service can open the transaction
// spanning the order and all of its tickets.
func (r *OrderRepo) DB() *sqlx.DB { return r.db }

// OrderSummary is the list representation of an order.  Each ticket is
// rendered as "Route: <route> Train: <train> (cargo: <n> seat: <n>)".
type OrderSummary struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Tickets   []string  `json:"tickets"`
}

// CreateTx inserts an empty order for userID inside tx and fills in the
// generated id and creation timestamp.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO orders (user_id) VALUES (?)`, o.UserID)
	if err != nil {
		return translate(err)
	}
	if o.ID, err = insertID(res); err != nil {
		return err
	}
	return getOne(ctx, tx, &o.CreatedAt, `SELECT created_at FROM orders WHERE id = ?`, o.ID)
}

// CreateTicketTx inserts one ticket inside tx.  A taken (journey, cargo,
// seat) slot yields ErrDuplicateTicket and an unknown journey yields
// ErrInvalidReference.
func (r *OrderRepo) CreateTicketTx(ctx context.Context, tx *sqlx.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets (cargo, seat, journey_id, order_id) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.Cargo, t.Seat, t.JourneyID, t.OrderID)
	if err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicateTicket
		}
		return translate(err)
	}
	t.ID, err = insertID(res)
	return err
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderSummary, error) {
	var orders []model.Order
	if err := r.db.SelectContext(ctx, &orders, `SELECT id, user_id, created_at FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID); err != nil {
		return nil, err
	}
	out := make([]OrderSummary, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}
	index := make(map[uint64]int, len(orders))
	ids := make([]uint64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
		out = append(out, OrderSummary{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: []string{}})
	}

	q, args, err := sqlx.In(`SELECT tk.order_id, tk.cargo, tk.seat, r.name AS route, t.name AS train
FROM tickets tk
JOIN journeys j ON j.id = tk.journey_id
JOIN routes r ON r.id = j.route_id
JOIN trains t ON t.id = j.train_id
WHERE tk.order_id IN (?)
ORDER BY tk.order_id, tk.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("expand order ids: %w", err)
	}
	var rows []struct {
		OrderID uint64 `db:"order_id"`
		Cargo   int    `db:"cargo"`
		Seat    int    `db:"seat"`
		Route   string `db:"route"`
		Train   string `db:"train"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, t := range rows {
		i := index[t.OrderID]
		out[i].Tickets = append(out[i].Tickets,
			fmt.Sprintf("Route: %s Train: %s (cargo: %d seat: %d)", t.Route, t.Train, t.Cargo, t.Seat))
	}
	return out, nil
}

// GetByIDForUser returns the order with its tickets when it belongs to
// userID, ErrNotFound otherwise.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Order, error) {
	var o model.Order
	if err := getOne(ctx, r.db, &o, `SELECT id, user_id, created_at FROM orders WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, err
	}
	o.Tickets = []model.Ticket{}
	const q = `SELECT id, cargo, seat, journey_id, order_id FROM tickets WHERE order_id = ? ORDER BY id`
	if err := r.db.SelectContext(ctx, &o.Tickets, q, id); err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteForUser removes the order and, by cascade, its tickets.  Orders
// of other users are reported as ErrNotFound.
func (r *OrderRepo) DeleteForUser(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
