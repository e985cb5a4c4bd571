package model

import (
	"fmt"
	"time"
)

// Journey is a scheduled run of a train over a route.  ArrivalTime must
// be strictly after DepartureTime; the `journeys` table enforces the same
// rule with a CHECK constraint.
type Journey struct {
	ID            uint64    `db:"id" json:"id"`
	RouteID       uint64    `db:"route_id" json:"route"`
	TrainID       uint64    `db:"train_id" json:"train"`
	DepartureTime time.Time `db:"departure_time" json:"departure_time"`
	ArrivalTime   time.Time `db:"arrival_time" json:"arrival_time"`
	CrewIDs       []uint64  `db:"-" json:"crew"`
}

// TravelTime is the scheduled duration of the journey.
func (j Journey) TravelTime() time.Duration { return j.ArrivalTime.Sub(j.DepartureTime) }

// FormatTravelTime renders d as "HH:MM:SS", prefixed with "<days> " when
// the duration spans a day or more.
func FormatTravelTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	h := (total % 86400) / 3600
	m := (total % 3600) / 60
	s := total % 60
	if days > 0 {
		return fmt.Sprintf("%d %02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// PrettyTravelTime renders d as "<h>h <m>m", or "<m>m" below one hour.
func PrettyTravelTime(d time.Duration) string {
	totalMinutes := int64(d / time.Minute)
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
