package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// StationRepo provides CRUD operations for stations.
type StationRepo struct {
	db *sqlx.DB
}

func NewStationRepo(db *sqlx.DB) *StationRepo { return &StationRepo{db: db} }

// StationSummary is the list representation of a station.
type StationSummary struct {
	ID   uint64 `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// StationDetail adds the names of routes starting and ending at the station.
type StationDetail struct {
	model.Station
	RoutesFrom []string `json:"routes_from"`
	RoutesTo   []string `json:"routes_to"`
}

// List returns stations ordered by id.  A non-empty name filters by a
// case-insensitive substring match.
func (r *StationRepo) List(ctx context.Context, name string) ([]StationSummary, error) {
	query := `SELECT id, name FROM stations`
	var args []interface{}
	if name = strings.TrimSpace(name); name != "" {
		query += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(name)+"%")
	}
	query += ` ORDER BY id`
	out := []StationSummary{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StationRepo) GetByID(ctx context.Context, id uint64) (*model.Station, error) {
	var s model.Station
	if err := getOne(ctx, r.db, &s, `SELECT id, name, latitude, longitude FROM stations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StationRepo) GetDetail(ctx context.Context, id uint64) (*StationDetail, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &StationDetail{Station: *s, RoutesFrom: []string{}, RoutesTo: []string{}}
	if err := r.db.SelectContext(ctx, &d.RoutesFrom, `SELECT name FROM routes WHERE source_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &d.RoutesTo, `SELECT name FROM routes WHERE destination_id = ? ORDER BY id`, id); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *StationRepo) Create(ctx context.Context, s *model.Station) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO stations (name, latitude, longitude) VALUES (?, ?, ?)`, s.Name, s.Latitude, s.Longitude)
	if err != nil {
		return translate(err)
	}
	s.ID, err = insertID(res)
	return err
}

func (r *StationRepo) Update(ctx context.Context, s *model.Station) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stations SET name = ?, latitude = ?, longitude = ? WHERE id = ?`, s.Name, s.Latitude, s.Longitude, s.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *StationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
