package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/utils"
)

// UserRepo persists application users.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, email, password_hash, first_name, last_name, is_staff, is_active, created_at, updated_at`

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes password with the given bcrypt cost and inserts u.  The
// staff flag is never taken from u: new accounts are regular users.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = normalizeEmail(u.Email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	const q = `INSERT INTO users (email, password_hash, first_name, last_name) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.Email, hash, u.FirstName, u.LastName)
	if err != nil {
		if IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	if u.ID, err = insertID(res); err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IsStaff = false
	u.IsActive = true
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := getOne(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, normalizeEmail(email)); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	if err := getOne(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile writes email and names.  When password is non-empty it is
// re-hashed and stored as well.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = normalizeEmail(u.Email)
	q := `UPDATE users SET email = ?, first_name = ?, last_name = ?`
	args := []interface{}{u.Email, u.FirstName, u.LastName}
	if password != "" {
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return err
		}
		q += `, password_hash = ?`
		args = append(args, hash)
		u.PasswordHash = hash
	}
	q += ` WHERE id = ?`
	args = append(args, u.ID)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireAffected(res)
}
