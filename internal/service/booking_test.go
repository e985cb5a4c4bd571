package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-station/internal/queue"
	"github.com/iliyamo/train-station/internal/repository"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.OrderCreatedEvent
	err    error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, ev queue.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	svc  *BookingService
	mock sqlmock.Sqlmock
	pub  *fakePublisher
	hook *logtest.Hook
}

func newFixture(t *testing.T, allowEmpty bool) *fixture {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "mysql")

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	pub := &fakePublisher{}
	svc := NewBookingService(db, repository.NewOrderRepo(db), repository.NewJourneyRepo(db), pub, logger, allowEmpty)
	return &fixture{svc: svc, mock: mock, pub: pub, hook: hook}
}

var createdAt = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func (f *fixture) expectOrder(orderID int64) {
	f.mock.ExpectBegin()
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (user_id) VALUES (?)")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(orderID, 1))
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM orders WHERE id = ?")).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
}

// expectTrain resolves journeyID to a 5x20 train.
func (f *fixture) expectTrain(journeyID int64) {
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM journeys j")).
		WithArgs(journeyID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "cargo_num", "places_in_cargo", "train_type_id"}).
			AddRow(1, "Hyundai", 5, 20, 1))
}

func (f *fixture) expectTicket(cargo, seat int, journeyID, orderID, ticketID int64) {
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tickets")).
		WithArgs(cargo, seat, journeyID, orderID).
		WillReturnResult(sqlmock.NewResult(ticketID, 1))
}

func (f *fixture) expectDuplicate(cargo, seat int, journeyID, orderID int64) {
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tickets")).
		WithArgs(cargo, seat, journeyID, orderID).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_tickets_journey_cargo_seat'"})
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, true)
	f.expectOrder(7)
	f.expectTrain(10)
	f.expectTicket(5, 20, 10, 7, 100)
	f.expectTicket(1, 1, 10, 7, 101) // same journey, train cached
	f.mock.ExpectCommit()

	order, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 10, Cargo: 5, Seat: 20},
		{JourneyID: 10, Cargo: 1, Seat: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), order.ID)
	assert.Equal(t, createdAt, order.CreatedAt)
	require.Len(t, order.Tickets, 2)
	assert.Equal(t, uint64(100), order.Tickets[0].ID)
	assert.Equal(t, uint64(101), order.Tickets[1].ID)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	require.Eventually(t, func() bool { return f.pub.count() == 1 }, time.Second, 10*time.Millisecond)
	ev := f.pub.events[0]
	assert.Equal(t, uint64(7), ev.OrderID)
	assert.Equal(t, uint64(2), ev.UserID)
	assert.NotEmpty(t, ev.EventID)
	assert.Len(t, ev.Tickets, 2)
}

func TestPlaceOrder_CapacityScenario(t *testing.T) {
	// 5x20 train: (5,20) fits, (6,1) is out of range and aborts the batch.
	f := newFixture(t, true)
	f.expectOrder(7)
	f.expectTrain(10)
	f.expectTicket(5, 20, 10, 7, 100)
	f.mock.ExpectRollback()

	_, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 10, Cargo: 5, Seat: 20},
		{JourneyID: 10, Cargo: 6, Seat: 1},
	})
	var te *TicketError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Index)
	assert.Equal(t, "cargo", te.Field.Field)
	assert.Equal(t, "cargo must be within (1, cargo_num): (1, 5)", te.Field.Message)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Zero(t, f.pub.count())
}

func TestPlaceOrder_ConflictWithCommittedOrder(t *testing.T) {
	// A second order for an already booked slot loses as a whole, its
	// valid ticket on another journey included.
	f := newFixture(t, true)
	f.expectOrder(8)
	f.expectTrain(11)
	f.expectTicket(1, 1, 11, 8, 200)
	f.expectTrain(10)
	f.expectDuplicate(5, 20, 10, 8)
	f.mock.ExpectRollback()

	_, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 11, Cargo: 1, Seat: 1},
		{JourneyID: 10, Cargo: 5, Seat: 20},
	})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ConflictError{Index: 1, JourneyID: 10, Cargo: 5, Seat: 20}, *ce)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Zero(t, f.pub.count())
}

func (f *fixture) expectDeadlock(cargo, seat int, journeyID, orderID int64) {
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tickets")).
		WithArgs(cargo, seat, journeyID, orderID).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"})
}

func TestPlaceOrder_DeadlockIsRetried(t *testing.T) {
	f := newFixture(t, true)
	f.expectOrder(7)
	f.expectTrain(10)
	f.expectTicket(1, 1, 10, 7, 100)
	f.expectDeadlock(1, 2, 10, 7)
	f.mock.ExpectRollback()

	f.expectOrder(9)
	f.expectTrain(10)
	f.expectTicket(1, 1, 10, 9, 102)
	f.expectTicket(1, 2, 10, 9, 103)
	f.mock.ExpectCommit()

	order, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 10, Cargo: 1, Seat: 1},
		{JourneyID: 10, Cargo: 1, Seat: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), order.ID)
	assert.Len(t, order.Tickets, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_PersistentDeadlockIsConflict(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < maxOrderAttempts; i++ {
		f.expectOrder(7)
		f.expectTrain(10)
		f.expectTicket(1, 1, 10, 7, 100)
		f.expectDeadlock(1, 2, 10, 7)
		f.mock.ExpectRollback()
	}

	_, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 10, Cargo: 1, Seat: 1},
		{JourneyID: 10, Cargo: 1, Seat: 2},
	})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Index)
	assert.Equal(t, uint64(10), ce.JourneyID)
	assert.Equal(t, 2, ce.Seat)
	assert.ErrorIs(t, err, repository.ErrTxAborted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Zero(t, f.pub.count())
}

func TestPlaceOrder_DuplicateWithinBatchFailsFast(t *testing.T) {
	f := newFixture(t, true)
	f.expectOrder(7)
	f.expectTrain(10)
	f.expectTicket(2, 3, 10, 7, 100)
	f.expectDuplicate(2, 3, 10, 7)
	f.mock.ExpectRollback()

	_, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{
		{JourneyID: 10, Cargo: 2, Seat: 3},
		{JourneyID: 10, Cargo: 2, Seat: 3},
		{JourneyID: 10, Cargo: 2, Seat: 3},
	})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Index)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_UnknownJourney(t *testing.T) {
	f := newFixture(t, true)
	f.expectOrder(7)
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM journeys j")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "cargo_num", "places_in_cargo", "train_type_id"}))
	f.mock.ExpectRollback()

	_, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{{JourneyID: 99, Cargo: 1, Seat: 1}})
	var te *TicketError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "journey", te.Field.Field)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_EmptyOrders(t *testing.T) {
	t.Run("rejected when disabled", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.PlaceOrder(context.Background(), 2, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("accepted by default", func(t *testing.T) {
		f := newFixture(t, true)
		f.expectOrder(7)
		f.mock.ExpectCommit()
		order, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{})
		require.NoError(t, err)
		assert.Empty(t, order.Tickets)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestPlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, true)
	f.pub.err = errors.New("broker down")
	f.expectOrder(7)
	f.expectTrain(10)
	f.expectTicket(1, 1, 10, 7, 100)
	f.mock.ExpectCommit()

	order, err := f.svc.PlaceOrder(context.Background(), 2, []TicketRequest{{JourneyID: 10, Cargo: 1, Seat: 1}})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), order.ID)
	require.Eventually(t, func() bool {
		for _, e := range f.hook.AllEntries() {
			if e.Message == "order event not published" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
