package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type RuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, user_id, type, buffer_months, fixed_target, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*domain.FinancialRule, error) {
	var f domain.FinancialRule
	err := row.Scan(&f.ID, &f.UserID, &f.Type, &f.BufferMonths, &f.FixedTarget, &f.IsActive,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *RuleRepository) Create(rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if rule.ID == "" {
		rule.ID = domain.NewID("rule")
	}
	query := `
		INSERT INTO financial_rules (id, user_id, type, buffer_months, fixed_target, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + ruleColumns
	return scanRule(r.db.QueryRow(ctx, query,
		rule.ID, rule.UserID, rule.Type, rule.BufferMonths, rule.FixedTarget, rule.IsActive))
}

func (r *RuleRepository) GetByID(userID, id string) (*domain.FinancialRule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM financial_rules WHERE user_id = $1 AND id = $2`
	return scanRule(r.db.QueryRow(ctx, query, userID, id))
}

func (r *RuleRepository) ListByUser(userID string, activeOnly bool) ([]*domain.FinancialRule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM financial_rules WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.FinancialRule
	for rows.Next() {
		f, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, f)
	}
	return rules, rows.Err()
}

func (r *RuleRepository) Update(rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `
		UPDATE financial_rules
		SET buffer_months = $3, fixed_target = $4, is_active = $5, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + ruleColumns
	return scanRule(r.db.QueryRow(ctx, query,
		rule.UserID, rule.ID, rule.BufferMonths, rule.FixedTarget, rule.IsActive))
}

func (r *RuleRepository) Delete(userID, id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM financial_rules WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

var _ domain.RuleRepository = (*RuleRepository)(nil)
