package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, name, balance, currency, as_of_date, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.CashAccount, error) {
	var a domain.CashAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Balance, &a.Currency, &a.AsOfDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(account *domain.CashAccount) (*domain.CashAccount, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if account.ID == "" {
		account.ID = domain.NewID("acct")
	}
	query := `
		INSERT INTO cash_accounts (id, user_id, name, balance, currency, as_of_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query,
		account.ID, account.UserID, account.Name, account.Balance, account.Currency, account.AsOfDate))
}

func (r *AccountRepository) GetByID(userID, id string) (*domain.CashAccount, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM cash_accounts WHERE user_id = $1 AND id = $2`
	return scanAccount(r.db.QueryRow(ctx, query, userID, id))
}

func (r *AccountRepository) ListByUser(userID string) ([]*domain.CashAccount, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM cash_accounts WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.CashAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) Update(account *domain.CashAccount) (*domain.CashAccount, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `
		UPDATE cash_accounts
		SET name = $3, balance = $4, currency = $5, as_of_date = $6, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query,
		account.UserID, account.ID, account.Name, account.Balance, account.Currency, account.AsOfDate))
}

func (r *AccountRepository) Delete(userID, id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM cash_accounts WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SumBalances(userID string) (decimal.Decimal, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var total decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM cash_accounts WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
