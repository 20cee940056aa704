package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type ExpenseRepository struct {
	db *pgxpool.Pool
}

func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, name, category, type, monthly_amount, currency,
	priority, is_stable, due_day, frequency, employee_count, notes, created_at, updated_at`

func scanExpense(row pgx.Row) (*domain.ExpenseBucket, error) {
	var b domain.ExpenseBucket
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.Type, &b.MonthlyAmount, &b.Currency,
		&b.Priority, &b.IsStable, &b.DueDay, &b.Frequency, &b.EmployeeCount, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *ExpenseRepository) Create(bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if bucket.ID == "" {
		bucket.ID = domain.NewID("exp")
	}
	query := `
		INSERT INTO expense_buckets (id, user_id, name, category, type, monthly_amount,
			currency, priority, is_stable, due_day, frequency, employee_count, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + expenseColumns
	return scanExpense(r.db.QueryRow(ctx, query,
		bucket.ID, bucket.UserID, bucket.Name, bucket.Category, bucket.Type, bucket.MonthlyAmount,
		bucket.Currency, bucket.Priority, bucket.IsStable, bucket.DueDay, bucket.Frequency,
		bucket.EmployeeCount, bucket.Notes))
}

func (r *ExpenseRepository) GetByID(userID, id string) (*domain.ExpenseBucket, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + expenseColumns + ` FROM expense_buckets WHERE user_id = $1 AND id = $2`
	return scanExpense(r.db.QueryRow(ctx, query, userID, id))
}

func (r *ExpenseRepository) ListByUser(userID string) ([]*domain.ExpenseBucket, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + expenseColumns + ` FROM expense_buckets WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []*domain.ExpenseBucket
	for rows.Next() {
		b, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *ExpenseRepository) Update(bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `
		UPDATE expense_buckets
		SET name = $3, category = $4, type = $5, monthly_amount = $6, currency = $7,
			priority = $8, is_stable = $9, due_day = $10, frequency = $11,
			employee_count = $12, notes = $13, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + expenseColumns
	return scanExpense(r.db.QueryRow(ctx, query,
		bucket.UserID, bucket.ID, bucket.Name, bucket.Category, bucket.Type, bucket.MonthlyAmount,
		bucket.Currency, bucket.Priority, bucket.IsStable, bucket.DueDay, bucket.Frequency,
		bucket.EmployeeCount, bucket.Notes))
}

func (r *ExpenseRepository) Delete(userID, id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM expense_buckets WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

var _ domain.ExpenseRepository = (*ExpenseRepository)(nil)
