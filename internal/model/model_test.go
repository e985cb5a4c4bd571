package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrainCapacity(t *testing.T) {
	assert.Equal(t, 100, Train{CargoNum: 5, PlacesInCargo: 20}.Capacity())
}

func TestPrettyTravelTime(t *testing.T) {
	assert.Equal(t, "45m", PrettyTravelTime(45*time.Minute))
	assert.Equal(t, "2h 5m", PrettyTravelTime(2*time.Hour+5*time.Minute))
	assert.Equal(t, "0m", PrettyTravelTime(-time.Hour))
}

func TestFormatTravelTime(t *testing.T) {
	assert.Equal(t, "03:04:05", FormatTravelTime(3*time.Hour+4*time.Minute+5*time.Second))
	assert.Equal(t, "1 02:00:00", FormatTravelTime(26*time.Hour))
}

func TestJourneyTravelTime(t *testing.T) {
	dep := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	j := Journey{DepartureTime: dep, ArrivalTime: dep.Add(90 * time.Minute)}
	assert.Equal(t, 90*time.Minute, j.TravelTime())
}

func TestUserRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, User{IsStaff: true}.Role())
	assert.Equal(t, RoleUser, User{}.Role())
}

func TestStationAndCrewStrings(t *testing.T) {
	assert.Equal(t, "Kyiv (50.45, 30.52)", Station{Name: "Kyiv", Latitude: 50.45, Longitude: 30.52}.String())
	assert.Equal(t, "Ada Lovelace", Crew{FirstName: "Ada", LastName: "Lovelace"}.FullName())
}
