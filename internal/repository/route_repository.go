package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// RouteRepo provides CRUD operations for routes.
type RouteRepo struct {
	db *sqlx.DB
}

func NewRouteRepo(db *sqlx.DB) *RouteRepo { return &RouteRepo{db: db} }

// RouteListItem renders both stations as "Name (lat, lon)".
type RouteListItem struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Distance    int    `json:"distance"`
}

// RouteDetail nests the full station records.
type RouteDetail struct {
	ID          uint64        `json:"id"`
	Name        string        `json:"name"`
	Source      model.Station `json:"source"`
	Destination model.Station `json:"destination"`
	Distance    int           `json:"distance"`
}

const routeDetailSelect = `SELECT r.id, r.name, r.distance,
       s.id, s.name, s.latitude, s.longitude,
       d.id, d.name, d.latitude, d.longitude
FROM routes r
JOIN stations s ON s.id = r.source_id
JOIN stations d ON d.id = r.destination_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRouteDetail(row rowScanner) (RouteDetail, error) {
	var d RouteDetail
	err := row.Scan(&d.ID, &d.Name, &d.Distance,
		&d.Source.ID, &d.Source.Name, &d.Source.Latitude, &d.Source.Longitude,
		&d.Destination.ID, &d.Destination.Name, &d.Destination.Latitude, &d.Destination.Longitude)
	return d, err
}

func (r *RouteRepo) List(ctx context.Context) ([]RouteListItem, error) {
	rows, err := r.db.QueryxContext(ctx, routeDetailSelect+` ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RouteListItem{}
	for rows.Next() {
		d, err := scanRouteDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, RouteListItem{
			ID:          d.ID,
			Name:        d.Name,
			Source:      d.Source.String(),
			Destination: d.Destination.String(),
			Distance:    d.Distance,
		})
	}
	return out, rows.Err()
}

func (r *RouteRepo) GetDetail(ctx context.Context, id uint64) (*RouteDetail, error) {
	d, err := scanRouteDetail(r.db.QueryRowxContext(ctx, routeDetailSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	var rt model.Route
	const q = `SELECT id, name, source_id, destination_id, distance FROM routes WHERE id = ?`
	if err := getOne(ctx, r.db, &rt, q, id); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) error {
	const q = `INSERT INTO routes (name, source_id, destination_id, distance) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rt.Name, rt.SourceID, rt.DestinationID, rt.Distance)
	if err != nil {
		return translate(err)
	}
	rt.ID, err = insertID(res)
	return err
}

func (r *RouteRepo) Update(ctx context.Context, rt *model.Route) error {
	const q = `UPDATE routes SET name = ?, source_id = ?, destination_id = ?, distance = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rt.Name, rt.SourceID, rt.DestinationID, rt.Distance, rt.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *RouteRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
