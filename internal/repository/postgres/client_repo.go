package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, user_id, name, type, currency, status, payment_behavior,
	churn_risk, scope_risk, billing, ledger_contact_id, notes, created_at, updated_at`

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	var billing []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Currency, &c.Status, &c.PaymentBehavior,
		&c.ChurnRisk, &c.ScopeRisk, &billing, &c.LedgerContactID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &c.Billing); err != nil {
			return nil, fmt.Errorf("decode billing config: %w", err)
		}
	}
	return &c, nil
}

func (r *ClientRepository) Create(client *domain.Client) (*domain.Client, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if client.ID == "" {
		client.ID = domain.NewID("clt")
	}
	billing, err := json.Marshal(client.Billing)
	if err != nil {
		return nil, fmt.Errorf("encode billing config: %w", err)
	}

	query := `
		INSERT INTO clients (id, user_id, name, type, currency, status, payment_behavior,
			churn_risk, scope_risk, billing, ledger_contact_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + clientColumns
	return scanClient(r.db.QueryRow(ctx, query,
		client.ID, client.UserID, client.Name, client.Type, client.Currency, client.Status,
		client.PaymentBehavior, client.ChurnRisk, client.ScopeRisk, billing,
		client.LedgerContactID, client.Notes))
}

func (r *ClientRepository) GetByID(userID, id string) (*domain.Client, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + clientColumns + ` FROM clients WHERE user_id = $1 AND id = $2`
	return scanClient(r.db.QueryRow(ctx, query, userID, id))
}

func (r *ClientRepository) ListByUser(userID string, activeOnly bool) ([]*domain.Client, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + clientColumns + ` FROM clients WHERE user_id = $1`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) Update(client *domain.Client) (*domain.Client, error) {
	ctx, cancel := opCtx()
	defer cancel()

	billing, err := json.Marshal(client.Billing)
	if err != nil {
		return nil, fmt.Errorf("encode billing config: %w", err)
	}

	query := `
		UPDATE clients
		SET name = $3, type = $4, currency = $5, status = $6, payment_behavior = $7,
			churn_risk = $8, scope_risk = $9, billing = $10, ledger_contact_id = $11,
			notes = $12, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + clientColumns
	return scanClient(r.db.QueryRow(ctx, query,
		client.UserID, client.ID, client.Name, client.Type, client.Currency, client.Status,
		client.PaymentBehavior, client.ChurnRisk, client.ScopeRisk, billing,
		client.LedgerContactID, client.Notes))
}

func (r *ClientRepository) Delete(userID, id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

var _ domain.ClientRepository = (*ClientRepository)(nil)
