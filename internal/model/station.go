package model

import "fmt"

// Station is a stop with geographic coordinates.
type Station struct {
	ID        uint64  `db:"id" json:"id"`               // stations.id
	Name      string  `db:"name" json:"name"`           // stations.name
	Latitude  float64 `db:"latitude" json:"latitude"`   // stations.latitude
	Longitude float64 `db:"longitude" json:"longitude"` // stations.longitude
}

func (s Station) String() string {
	return fmt.Sprintf("%s (%g, %g)", s.Name, s.Latitude, s.Longitude)
}

// Route connects a source station to a destination station.  Distance is
// expressed in kilometres.
type Route struct {
	ID            uint64 `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	SourceID      uint64 `db:"source_id" json:"source"`
	DestinationID uint64 `db:"destination_id" json:"destination"`
	Distance      int    `db:"distance" json:"distance"`
}
