package model

// Crew is a staff member that can be assigned to journeys.
type Crew struct {
	ID        uint64 `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// FullName joins first and last name with a space.
func (c Crew) FullName() string { return c.FirstName + " " + c.LastName }
