// Package service holds the booking logic that spans several
// repositories: the capacity rule and the order transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/train-station/internal/metrics"
	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/queue"
	"github.com/iliyamo/train-station/internal/repository"
)

// ErrEmptyOrder is returned when an order without tickets is submitted
// and empty orders are disabled.
var ErrEmptyOrder = errors.New("at least one ticket is required")

// TicketRequest is one requested seat.
type TicketRequest struct {
	JourneyID uint64 `json:"journey"`
	Cargo     int    `json:"cargo"`
	Seat      int    `json:"seat"`
}

// TicketError is a validation failure of the ticket at Index.
type TicketError struct {
	Index int
	Field *FieldError
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("ticket %d: %s", e.Index, e.Field.Error())
}

// ConflictError reports that the slot requested by the ticket at Index is
// already booked, either by a committed order or earlier in the same batch,
// or that a concurrent order kept it locked until every attempt was
// aborted.  Err carries the driver cause in the latter case.
type ConflictError struct {
	Index     int
	JourneyID uint64
	Cargo     int
	Seat      int
	Err       error
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ticket %d: journey %d cargo %d seat %d is already booked", e.Index, e.JourneyID, e.Cargo, e.Seat)
}

// OrderWriter inserts orders and tickets inside a caller-owned transaction.
type OrderWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, o *model.Order) error
	CreateTicketTx(ctx context.Context, tx *sqlx.Tx, t *model.Ticket) error
}

// TrainResolver finds the train serving a journey inside a transaction.
type TrainResolver interface {
	TrainForJourneyTx(ctx context.Context, tx *sqlx.Tx, journeyID uint64) (*model.Train, error)
}

// maxOrderAttempts bounds how often an order transaction aborted by a
// deadlock or lock wait timeout is run again.
const maxOrderAttempts = 3

// BookingService places orders.  Seat uniqueness is guaranteed by the
// tickets unique index; concurrent orders for the same slot race in the
// database and the loser's whole transaction is rolled back.
type BookingService struct {
	db         *sqlx.DB
	orders     OrderWriter
	trains     TrainResolver
	pub        Publisher
	log        logrus.FieldLogger
	allowEmpty bool
}

func NewBookingService(db *sqlx.DB, orders OrderWriter, trains TrainResolver, pub Publisher, log logrus.FieldLogger, allowEmpty bool) *BookingService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &BookingService{
		db:         db,
		orders:     orders,
		trains:     trains,
		pub:        pub,
		log:        log.WithField("component", "booking"),
		allowEmpty: allowEmpty,
	}
}

// PlaceOrder creates an order for userID with all requested tickets, or
// nothing at all.  Validation failures come back as *TicketError, taken
// slots as *ConflictError.
func (s *BookingService) PlaceOrder(ctx context.Context, userID uint64, reqs []TicketRequest) (*model.Order, error) {
	if len(reqs) == 0 && !s.allowEmpty {
		metrics.RecordOrder(metrics.OutcomeValidation, 0, 0)
		return nil, ErrEmptyOrder
	}
	start := time.Now()
	order, err := s.placeOrder(ctx, userID, reqs)
	for attempt := 1; attempt < maxOrderAttempts && errors.Is(err, repository.ErrTxAborted) && ctx.Err() == nil; attempt++ {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "attempt": attempt}).Warn("order transaction aborted; retrying")
		order, err = s.placeOrder(ctx, userID, reqs)
	}
	elapsed := time.Since(start)

	var (
		te *TicketError
		ce *ConflictError
	)
	switch {
	case err == nil:
		metrics.RecordOrder(metrics.OutcomeCreated, len(order.Tickets), elapsed)
	case errors.As(err, &te):
		metrics.RecordOrder(metrics.OutcomeValidation, 0, elapsed)
		return nil, err
	case errors.As(err, &ce):
		metrics.RecordOrder(metrics.OutcomeConflict, 0, elapsed)
		s.log.WithFields(logrus.Fields{
			"user_id": userID, "journey_id": ce.JourneyID, "cargo": ce.Cargo, "seat": ce.Seat,
		}).Info("seat conflict; order rolled back")
		return nil, err
	default:
		metrics.RecordOrder(metrics.OutcomeError, 0, elapsed)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "user_id": userID, "tickets": len(order.Tickets)}).Info("order created")
	s.publish(ctx, order)
	return order, nil
}

func (s *BookingService) placeOrder(ctx context.Context, userID uint64, reqs []TicketRequest) (*model.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order := &model.Order{UserID: userID, Tickets: make([]model.Ticket, 0, len(reqs))}
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	trains := make(map[uint64]*model.Train)
	for i, r := range reqs {
		train, ok := trains[r.JourneyID]
		if !ok {
			train, err = s.trains.TrainForJourneyTx(ctx, tx, r.JourneyID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, unknownJourney(i, r.JourneyID)
			}
			if err != nil {
				return nil, fmt.Errorf("resolve journey %d: %w", r.JourneyID, err)
			}
			trains[r.JourneyID] = train
		}

		if fe := ValidateTicket(r.Cargo, r.Seat, *train); fe != nil {
			return nil, &TicketError{Index: i, Field: fe}
		}

		t := model.Ticket{Cargo: r.Cargo, Seat: r.Seat, JourneyID: r.JourneyID, OrderID: order.ID}
		switch err := s.orders.CreateTicketTx(ctx, tx, &t); {
		case errors.Is(err, repository.ErrDuplicateTicket):
			return nil, &ConflictError{Index: i, JourneyID: r.JourneyID, Cargo: r.Cargo, Seat: r.Seat}
		case errors.Is(err, repository.ErrTxAborted):
			return nil, &ConflictError{Index: i, JourneyID: r.JourneyID, Cargo: r.Cargo, Seat: r.Seat, Err: err}
		case errors.Is(err, repository.ErrInvalidReference):
			// journey deleted after it was resolved
			return nil, unknownJourney(i, r.JourneyID)
		case err != nil:
			return nil, fmt.Errorf("create ticket %d: %w", i, err)
		}
		order.Tickets = append(order.Tickets, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	committed = true
	return order, nil
}

func unknownJourney(index int, journeyID uint64) *TicketError {
	return &TicketError{Index: index, Field: &FieldError{
		Field:   "journey",
		Message: fmt.Sprintf("journey %d does not exist", journeyID),
	}}
}

// publish hands the event to the broker in the background.  Failures are
// logged and counted; the order is already committed.
func (s *BookingService) publish(ctx context.Context, o *model.Order) {
	ev := queue.OrderCreatedEvent{
		EventID:   uuid.NewString(),
		OrderID:   o.ID,
		UserID:    o.UserID,
		Tickets:   make([]queue.TicketEvent, 0, len(o.Tickets)),
		CreatedAt: o.CreatedAt,
	}
	for _, t := range o.Tickets {
		ev.Tickets = append(ev.Tickets, queue.TicketEvent{TicketID: t.ID, JourneyID: t.JourneyID, Cargo: t.Cargo, Seat: t.Seat})
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	go func() {
		defer cancel()
		err := s.pub.PublishOrderCreated(pubCtx, ev)
		metrics.RecordPublish(err == nil)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"order_id": ev.OrderID, "event_id": ev.EventID}).Warn("order event not published")
		}
	}()
}
