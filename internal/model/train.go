package model

// TrainType is a category of train (e.g. intercity, regional).  It maps
// to a row in the `train_types` table.
type TrainType struct {
	ID   uint64 `db:"id" json:"id"`     // train_types.id
	Name string `db:"name" json:"name"` // train_types.name
}

// Train bounds for the cargo and seat counts.
const (
	MaxCargoNum      = 20
	MaxPlacesInCargo = 100
)

// Train describes rolling stock with a fixed number of cargos (wagons)
// and seats per cargo.
//
// Fields:
//
//	ID            – primary key identifier.
//	Name          – display name.
//	CargoNum      – number of cargos, 1..20.
//	PlacesInCargo – seats per cargo, 1..100.
//	TrainTypeID   – reference to train_types.id.
type Train struct {
	ID            uint64 `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	CargoNum      int    `db:"cargo_num" json:"cargo_num"`
	PlacesInCargo int    `db:"places_in_cargo" json:"places_in_cargo"`
	TrainTypeID   uint64 `db:"train_type_id" json:"train_type"`
}

// Capacity is the total number of seats on the train.
func (t Train) Capacity() int { return t.CargoNum * t.PlacesInCargo }
