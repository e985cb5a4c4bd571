package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
)

// CrewRepo provides CRUD operations for crew members.
type CrewRepo struct {
	db *sqlx.DB
}

func NewCrewRepo(db *sqlx.DB) *CrewRepo { return &CrewRepo{db: db} }

// CrewListItem is the list representation of a crew member.
type CrewListItem struct {
	ID       uint64 `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}

func (r *CrewRepo) List(ctx context.Context) ([]CrewListItem, error) {
	out := []CrewListItem{}
	const q = `SELECT id, CONCAT(first_name, ' ', last_name) AS full_name FROM crew ORDER BY id`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CrewRepo) GetByID(ctx context.Context, id uint64) (*model.Crew, error) {
	var c model.Crew
	if err := getOne(ctx, r.db, &c, `SELECT id, first_name, last_name FROM crew WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CrewRepo) Create(ctx context.Context, c *model.Crew) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO crew (first_name, last_name) VALUES (?, ?)`, c.FirstName, c.LastName)
	if err != nil {
		return translate(err)
	}
	c.ID, err = insertID(res)
	return err
}

func (r *CrewRepo) Update(ctx context.Context, c *model.Crew) error {
	res, err := r.db.ExecContext(ctx, `UPDATE crew SET first_name = ?, last_name = ? WHERE id = ?`, c.FirstName, c.LastName, c.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *CrewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM crew WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
