package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// JourneyRepo manages journeys and their crew assignments.  It also
// resolves the train of a journey for the booking transaction.
type JourneyRepo struct {
	db *sqlx.DB
}

func NewJourneyRepo(db *sqlx.DB) *JourneyRepo { return &JourneyRepo{db: db} }

// JourneyFilter narrows List.  Route and Train match the route and train
// names case-insensitively by substring.  The time bounds compare the
// calendar day of departure/arrival and are inclusive.
type JourneyFilter struct {
	Route           string
	Train           string
	DepartureAfter  *time.Time
	DepartureBefore *time.Time
	ArrivalAfter    *time.Time
	ArrivalBefore   *time.Time
}

// JourneyListItem is the list representation of a journey.
type JourneyListItem struct {
	ID               uint64    `json:"id"`
	Route            string    `json:"route"`
	Train            string    `json:"train"`
	TrainType        string    `json:"train_type"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	TravelTimePretty string    `json:"travel_time_pretty"`
	Crew             []string  `json:"crew"`
	TicketsAvailable int       `json:"tickets_available"`
}

// JourneyDetail nests route, train and crew records.
type JourneyDetail struct {
	ID               uint64       `json:"id"`
	Route            RouteDetail  `json:"route"`
	Train            TrainDetail  `json:"train"`
	DepartureTime    time.Time    `json:"departure_time"`
	ArrivalTime      time.Time    `json:"arrival_time"`
	TravelTime       string       `json:"travel_time"`
	TravelTimePretty string       `json:"travel_time_pretty"`
	Crew             []model.Crew `json:"crew"`
	TicketsAvailable int          `json:"tickets_available"`
}

// ticketsAvailableExpr is evaluated on every read; availability is never
// stored.
const ticketsAvailableExpr = `t.cargo_num * t.places_in_cargo - (SELECT COUNT(*) FROM tickets tk WHERE tk.journey_id = j.id)`

const dayLayout = "2006-01-02"

func (f JourneyFilter) where() (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if s := strings.TrimSpace(f.Route); s != "" {
		where = append(where, "LOWER(r.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(f.Train); s != "" {
		where = append(where, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	bounds := []struct {
		day  *time.Time
		cond string
	}{
		{f.DepartureAfter, "DATE(j.departure_time) >= ?"},
		{f.DepartureBefore, "DATE(j.departure_time) <= ?"},
		{f.ArrivalAfter, "DATE(j.arrival_time) >= ?"},
		{f.ArrivalBefore, "DATE(j.arrival_time) <= ?"},
	}
	for _, b := range bounds {
		if b.day != nil {
			where = append(where, b.cond)
			args = append(args, b.day.Format(dayLayout))
		}
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns journeys matching f ordered by departure time.
func (r *JourneyRepo) List(ctx context.Context, f JourneyFilter) ([]JourneyListItem, error) {
	cond, args := f.where()
	q := `SELECT j.id, r.name, t.name, tt.name, j.departure_time, j.arrival_time, ` + ticketsAvailableExpr + `
FROM journeys j
JOIN routes r ON r.id = j.route_id
JOIN trains t ON t.id = j.train_id
JOIN train_types tt ON tt.id = t.train_type_id` + cond + `
ORDER BY j.departure_time, j.id`

	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []JourneyListItem{}
	index := map[uint64]int{}
	for rows.Next() {
		var it JourneyListItem
		if err := rows.Scan(&it.ID, &it.Route, &it.Train, &it.TrainType, &it.DepartureTime, &it.ArrivalTime, &it.TicketsAvailable); err != nil {
			return nil, err
		}
		it.TravelTimePretty = model.PrettyTravelTime(it.ArrivalTime.Sub(it.DepartureTime))
		it.Crew = []string{}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uint64, 0, len(out))
	for _, it := range out {
		ids = append(ids, it.ID)
	}
	crew, err := r.crewFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range crew {
		i := index[c.JourneyID]
		out[i].Crew = append(out[i].Crew, c.FullName())
	}
	return out, nil
}

type journeyCrewRow struct {
	JourneyID uint64 `db:"journey_id"`
	model.Crew
}

func (r *JourneyRepo) crewFor(ctx context.Context, journeyIDs []uint64) ([]journeyCrewRow, error) {
	q, args, err := sqlx.In(`SELECT jc.journey_id, c.id, c.first_name, c.last_name
FROM journey_crew jc
JOIN crew c ON c.id = jc.crew_id
WHERE jc.journey_id IN (?)
ORDER BY jc.journey_id, c.id`, journeyIDs)
	if err != nil {
		return nil, fmt.Errorf("expand journey ids: %w", err)
	}
	var out []journeyCrewRow
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the raw journey row with its crew ids.
func (r *JourneyRepo) GetByID(ctx context.Context, id uint64) (*model.Journey, error) {
	var j model.Journey
	const q = `SELECT id, route_id, train_id, departure_time, arrival_time FROM journeys WHERE id = ?`
	if err := getOne(ctx, r.db, &j, q, id); err != nil {
		return nil, err
	}
	j.CrewIDs = []uint64{}
	if err := r.db.SelectContext(ctx, &j.CrewIDs, `SELECT crew_id FROM journey_crew WHERE journey_id = ? ORDER BY crew_id`, id); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetDetail returns the journey with nested route, train and crew.
func (r *JourneyRepo) GetDetail(ctx context.Context, id uint64) (*JourneyDetail, error) {
	const q = `SELECT j.id, j.departure_time, j.arrival_time, ` + ticketsAvailableExpr + `,
       r.id, r.name, r.distance,
       s.id, s.name, s.latitude, s.longitude,
       d.id, d.name, d.latitude, d.longitude,
       t.id, t.name, t.cargo_num, t.places_in_cargo, tt.id, tt.name
FROM journeys j
JOIN routes r ON r.id = j.route_id
JOIN stations s ON s.id = r.source_id
JOIN stations d ON d.id = r.destination_id
JOIN trains t ON t.id = j.train_id
JOIN train_types tt ON tt.id = t.train_type_id
WHERE j.id = ?`

	var d JourneyDetail
	rt, tr := &d.Route, &d.Train
	err := r.db.QueryRowxContext(ctx, q, id).Scan(
		&d.ID, &d.DepartureTime, &d.ArrivalTime, &d.TicketsAvailable,
		&rt.ID, &rt.Name, &rt.Distance,
		&rt.Source.ID, &rt.Source.Name, &rt.Source.Latitude, &rt.Source.Longitude,
		&rt.Destination.ID, &rt.Destination.Name, &rt.Destination.Latitude, &rt.Destination.Longitude,
		&tr.ID, &tr.Name, &tr.CargoNum, &tr.PlacesInCargo, &tr.TrainType.ID, &tr.TrainType.Name,
	)
	if err != nil {
		return nil, notFound(err)
	}
	tr.Capacity = tr.CargoNum * tr.PlacesInCargo
	travel := d.ArrivalTime.Sub(d.DepartureTime)
	d.TravelTime = model.FormatTravelTime(travel)
	d.TravelTimePretty = model.PrettyTravelTime(travel)

	d.Crew = []model.Crew{}
	const cq = `SELECT c.id, c.first_name, c.last_name
FROM journey_crew jc
JOIN crew c ON c.id = jc.crew_id
WHERE jc.journey_id = ?
ORDER BY c.id`
	if err := r.db.SelectContext(ctx, &d.Crew, cq, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts the journey and its crew assignments in one transaction.
func (r *JourneyRepo) Create(ctx context.Context, j *model.Journey) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `INSERT INTO journeys (route_id, train_id, departure_time, arrival_time) VALUES (?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q, j.RouteID, j.TrainID, j.DepartureTime, j.ArrivalTime)
		if err != nil {
			return translate(err)
		}
		if j.ID, err = insertID(res); err != nil {
			return err
		}
		return insertCrewTx(ctx, tx, j.ID, j.CrewIDs)
	})
}

// Update replaces the journey row and its full crew set.
func (r *JourneyRepo) Update(ctx context.Context, j *model.Journey) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `UPDATE journeys SET route_id = ?, train_id = ?, departure_time = ?, arrival_time = ? WHERE id = ?`
		res, err := tx.ExecContext(ctx, q, j.RouteID, j.TrainID, j.DepartureTime, j.ArrivalTime, j.ID)
		if err != nil {
			return translate(err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM journey_crew WHERE journey_id = ?`, j.ID); err != nil {
			return err
		}
		return insertCrewTx(ctx, tx, j.ID, j.CrewIDs)
	})
}

func insertCrewTx(ctx context.Context, tx *sqlx.Tx, journeyID uint64, crewIDs []uint64) error {
	seen := make(map[uint64]bool, len(crewIDs))
	for _, cid := range crewIDs {
		if seen[cid] {
			continue
		}
		seen[cid] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO journey_crew (journey_id, crew_id) VALUES (?, ?)`, journeyID, cid); err != nil {
			return translate(err)
		}
	}
	return nil
}

// Delete removes a journey.  Its tickets and crew assignments go with it.
func (r *JourneyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journeys WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

// TrainForJourneyTx resolves the train serving a journey inside the
// caller's transaction.  ErrNotFound means the journey does not exist.
func (r *JourneyRepo) TrainForJourneyTx(ctx context.Context, tx *sqlx.Tx, journeyID uint64) (*model.Train, error) {
	const q = `SELECT t.id, t.name, t.cargo_num, t.places_in_cargo, t.train_type_id
FROM journeys j
JOIN trains t ON t.id = j.train_id
WHERE j.id = ?`
	var t model.Train
	if err := getOne(ctx, tx, &t, q, journeyID); err != nil {
		return nil, err
	}
	return &t, nil
}
