package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// TrainTypeRepo provides CRUD operations for train types.
type TrainTypeRepo struct {
	db *sqlx.DB
}

func NewTrainTypeRepo(db *sqlx.DB) *TrainTypeRepo { return &TrainTypeRepo{db: db} }

func (r *TrainTypeRepo) List(ctx context.Context) ([]model.TrainType, error) {
	out := []model.TrainType{}
	if err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM train_types ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TrainTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TrainType, error) {
	var tt model.TrainType
	if err := getOne(ctx, r.db, &tt, `SELECT id, name FROM train_types WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *TrainTypeRepo) Create(ctx context.Context, tt *model.TrainType) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO train_types (name) VALUES (?)`, tt.Name)
	if err != nil {
		return translate(err)
	}
	tt.ID, err = insertID(res)
	return err
}

func (r *TrainTypeRepo) Update(ctx context.Context, tt *model.TrainType) error {
	res, err := r.db.ExecContext(ctx, `UPDATE train_types SET name = ? WHERE id = ?`, tt.Name, tt.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

// Delete removes a train type.  Trains of that type and their journeys
// are removed by the cascading foreign keys.
func (r *TrainTypeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM train_types WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
