package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type TriggerRepository struct {
	db *pgxpool.Pool
}

func NewTriggerRepository(db *pgxpool.Pool) *TriggerRepository {
	return &TriggerRepository{db: db}
}

const instanceColumns = `id, trigger_id, user_id, scope_key, status, severity,
	suggestion, fired_at, cooldown_until, resolved_at`

func scanInstance(row pgx.Row) (*domain.TriggerInstance, error) {
	var t domain.TriggerInstance
	var suggestion []byte
	err := row.Scan(&t.ID, &t.TriggerID, &t.UserID, &t.ScopeKey, &t.Status, &t.Severity,
		&suggestion, &t.FiredAt, &t.CooldownUntil, &t.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(suggestion) > 0 {
		if err := json.Unmarshal(suggestion, &t.Suggestion); err != nil {
			return nil, fmt.Errorf("decode suggestion: %w", err)
		}
	}
	return &t, nil
}

func (r *TriggerRepository) CreateInstance(instance *domain.TriggerInstance) (*domain.TriggerInstance, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if instance.ID == "" {
		instance.ID = domain.NewID("inst")
	}
	suggestion, err := json.Marshal(instance.Suggestion)
	if err != nil {
		return nil, fmt.Errorf("encode suggestion: %w", err)
	}

	query := `
		INSERT INTO trigger_instances (id, trigger_id, user_id, scope_key, status, severity,
			suggestion, fired_at, cooldown_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + instanceColumns
	return scanInstance(r.db.QueryRow(ctx, query,
		instance.ID, instance.TriggerID, instance.UserID, instance.ScopeKey, instance.Status,
		instance.Severity, suggestion, instance.FiredAt, instance.CooldownUntil))
}

func (r *TriggerRepository) GetInstance(userID, id string) (*domain.TriggerInstance, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + instanceColumns + ` FROM trigger_instances WHERE user_id = $1 AND id = $2`
	return scanInstance(r.db.QueryRow(ctx, query, userID, id))
}

func (r *TriggerRepository) ListInstances(userID string, statuses []domain.InstanceStatus) ([]*domain.TriggerInstance, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + instanceColumns + ` FROM trigger_instances WHERE user_id = $1`
	args := []interface{}{userID}
	if len(statuses) > 0 {
		statusList := make([]string, len(statuses))
		for i, s := range statuses {
			statusList[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, statusList)
	}
	query += ` ORDER BY fired_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*domain.TriggerInstance
	for rows.Next() {
		t, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, t)
	}
	return instances, rows.Err()
}

func (r *TriggerRepository) LatestFiring(userID, triggerID, scopeKey string) (*domain.TriggerInstance, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + instanceColumns + ` FROM trigger_instances
		WHERE user_id = $1 AND trigger_id = $2 AND scope_key = $3
		ORDER BY fired_at DESC LIMIT 1`
	return scanInstance(r.db.QueryRow(ctx, query, userID, triggerID, scopeKey))
}

func (r *TriggerRepository) UpdateInstance(instance *domain.TriggerInstance) (*domain.TriggerInstance, error) {
	ctx, cancel := opCtx()
	defer cancel()

	suggestion, err := json.Marshal(instance.Suggestion)
	if err != nil {
		return nil, fmt.Errorf("encode suggestion: %w", err)
	}

	query := `
		UPDATE trigger_instances
		SET status = $3, suggestion = $4, cooldown_until = $5, resolved_at = $6
		WHERE user_id = $1 AND id = $2
		RETURNING ` + instanceColumns
	return scanInstance(r.db.QueryRow(ctx, query,
		instance.UserID, instance.ID, instance.Status, suggestion,
		instance.CooldownUntil, instance.ResolvedAt))
}

var _ domain.TriggerRepository = (*TriggerRepository)(nil)
