// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the booking service to distinguish between different
// failure scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id does not exist, or
// exists but is hidden from the caller (orders of other users).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrInvalidReference is returned when a write points at a row that does
// not exist (unknown train type, station, route, crew member...).
var ErrInvalidReference = errors.New("invalid reference")

// ErrConstraint is returned when a CHECK constraint rejects a row, e.g. a
// journey whose arrival is not after its departure.
var ErrConstraint = errors.New("constraint violated")

// ErrDuplicateTicket is returned when inserting a ticket violates the
// unique (journey_id, cargo, seat) index.
var ErrDuplicateTicket = errors.New("seat already booked")

// ErrTxAborted is returned when InnoDB rolled the transaction back to
// break a deadlock or after a lock wait timeout.  The whole transaction
// may be retried.
var ErrTxAborted = errors.New("transaction aborted by lock contention")

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry     = 1062
	mysqlNoReferencedRow    = 1452
	mysqlRowIsReferenced    = 1451
	mysqlCheckConstraintHit = 3819
	mysqlLockWaitTimeout    = 1205
	mysqlDeadlock           = 1213
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports whether err is a MySQL unique index violation.
func IsDuplicateKey(err error) bool { return mysqlErrNumber(err) == mysqlDuplicateEntry }

// translate maps constraint failures onto the package sentinels and passes
// any other error through.
func translate(err error) error {
	switch mysqlErrNumber(err) {
	case mysqlNoReferencedRow:
		return ErrInvalidReference
	case mysqlRowIsReferenced:
		return ErrConflict
	case mysqlCheckConstraintHit:
		return ErrConstraint
	case mysqlDeadlock, mysqlLockWaitTimeout:
		return fmt.Errorf("%w: %v", ErrTxAborted, err)
	}
	return err
}
