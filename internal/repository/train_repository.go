package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// TrainRepo provides CRUD operations for trains.
type TrainRepo struct {
	db *sqlx.DB
}

func NewTrainRepo(db *sqlx.DB) *TrainRepo { return &TrainRepo{db: db} }

// TrainListItem is the list representation of a train: the type is
// flattened to its name and the capacity is derived.
type TrainListItem struct {
	ID            uint64 `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Type          string `db:"type" json:"type"`
	CargoNum      int    `db:"cargo_num" json:"cargo_num"`
	PlacesInCargo int    `db:"places_in_cargo" json:"places_in_cargo"`
	Capacity      int    `db:"capacity" json:"capacity"`
}

// TrainDetail nests the full train type.
type TrainDetail struct {
	ID            uint64          `json:"id"`
	Name          string          `json:"name"`
	TrainType     model.TrainType `json:"train_type"`
	CargoNum      int             `json:"cargo_num"`
	PlacesInCargo int             `json:"places_in_cargo"`
	Capacity      int             `json:"capacity"`
}

const trainListSelect = `SELECT t.id, t.name, tt.name AS type, t.cargo_num, t.places_in_cargo,
       t.cargo_num * t.places_in_cargo AS capacity
FROM trains t
JOIN train_types tt ON tt.id = t.train_type_id`

// List returns all trains, restricted to the given train type ids when
// typeIDs is non-empty.
func (r *TrainRepo) List(ctx context.Context, typeIDs []uint64) ([]TrainListItem, error) {
	query := trainListSelect + ` ORDER BY t.id`
	var args []interface{}
	if len(typeIDs) > 0 {
		q, a, err := sqlx.In(trainListSelect+` WHERE t.train_type_id IN (?) ORDER BY t.id`, typeIDs)
		if err != nil {
			return nil, fmt.Errorf("expand train_type filter: %w", err)
		}
		query, args = r.db.Rebind(q), a
	}
	out := []TrainListItem{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TrainRepo) GetByID(ctx context.Context, id uint64) (*model.Train, error) {
	var t model.Train
	const q = `SELECT id, name, cargo_num, places_in_cargo, train_type_id FROM trains WHERE id = ?`
	if err := getOne(ctx, r.db, &t, q, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TrainRepo) GetDetail(ctx context.Context, id uint64) (*TrainDetail, error) {
	const q = `SELECT t.id, t.name, t.cargo_num, t.places_in_cargo, tt.id, tt.name
FROM trains t
JOIN train_types tt ON tt.id = t.train_type_id
WHERE t.id = ?`
	var d TrainDetail
	err := r.db.QueryRowxContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.CargoNum, &d.PlacesInCargo, &d.TrainType.ID, &d.TrainType.Name)
	if err != nil {
		return nil, notFound(err)
	}
	d.Capacity = d.CargoNum * d.PlacesInCargo
	return &d, nil
}

func (r *TrainRepo) Create(ctx context.Context, t *model.Train) error {
	const q = `INSERT INTO trains (name, cargo_num, places_in_cargo, train_type_id) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.CargoNum, t.PlacesInCargo, t.TrainTypeID)
	if err != nil {
		return translate(err)
	}
	t.ID, err = insertID(res)
	return err
}

func (r *TrainRepo) Update(ctx context.Context, t *model.Train) error {
	const q = `UPDATE trains SET name = ?, cargo_num = ?, places_in_cargo = ?, train_type_id = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.CargoNum, t.PlacesInCargo, t.TrainTypeID, t.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *TrainRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trains WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
