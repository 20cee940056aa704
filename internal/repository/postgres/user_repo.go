package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id string) (*domain.User, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, base_currency, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.BaseCurrency, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListAll() ([]*domain.User, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id, email, base_currency, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.BaseCurrency, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

var _ domain.UserRepository = (*UserRepository)(nil)
