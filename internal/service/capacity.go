package service

import (
	"fmt"

	"github.com/iliyamo/train-station/internal/model"
)

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidateTicket checks that cargo and seat fall inside the train's
// layout.  Cargo is checked before seat; the first violation is returned.
func ValidateTicket(cargo, seat int, train model.Train) *FieldError {
	checks := [...]struct {
		value     int
		field     string
		boundAttr string
		bound     int
	}{
		{cargo, "cargo", "cargo_num", train.CargoNum},
		{seat, "seat", "places_in_cargo", train.PlacesInCargo},
	}
	for _, c := range checks {
		if c.value < 1 || c.value > c.bound {
			return &FieldError{
				Field:   c.field,
				Message: fmt.Sprintf("%s must be within (1, %s): (1, %d)", c.field, c.boundAttr, c.bound),
			}
		}
	}
	return nil
}
