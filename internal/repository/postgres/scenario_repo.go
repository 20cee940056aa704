package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type ScenarioRepository struct {
	db *pgxpool.Pool
}

func NewScenarioRepository(db *pgxpool.Pool) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

const scenarioColumns = `id, user_id, name, type, scope, params, status,
	parent_scenario_id, layer_order, created_at, updated_at`

func scanScenario(row pgx.Row) (*domain.Scenario, error) {
	var s domain.Scenario
	var scope, params []byte
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Type, &scope, &params, &s.Status,
		&s.ParentScenarioID, &s.LayerOrder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScenarioNotFound
		}
		return nil, err
	}
	if len(scope) > 0 {
		if err := json.Unmarshal(scope, &s.Scope); err != nil {
			return nil, fmt.Errorf("decode scenario scope: %w", err)
		}
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &s.Params); err != nil {
			return nil, fmt.Errorf("decode scenario params: %w", err)
		}
	}
	return &s, nil
}

func (r *ScenarioRepository) Create(scenario *domain.Scenario) (*domain.Scenario, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if scenario.ID == "" {
		scenario.ID = domain.NewID("scn")
	}
	scope, err := json.Marshal(scenario.Scope)
	if err != nil {
		return nil, fmt.Errorf("encode scenario scope: %w", err)
	}
	params, err := json.Marshal(scenario.Params)
	if err != nil {
		return nil, fmt.Errorf("encode scenario params: %w", err)
	}

	query := `
		INSERT INTO scenarios (id, user_id, name, type, scope, params, status,
			parent_scenario_id, layer_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + scenarioColumns
	return scanScenario(r.db.QueryRow(ctx, query,
		scenario.ID, scenario.UserID, scenario.Name, scenario.Type, scope, params,
		scenario.Status, scenario.ParentScenarioID, scenario.LayerOrder))
}

func (r *ScenarioRepository) GetByID(userID, id string) (*domain.Scenario, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE user_id = $1 AND id = $2`
	return scanScenario(r.db.QueryRow(ctx, query, userID, id))
}

func (r *ScenarioRepository) ListByUser(userID string, statuses []domain.ScenarioStatus) ([]*domain.Scenario, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE user_id = $1`
	args := []interface{}{userID}
	if len(statuses) > 0 {
		statusList := make([]string, len(statuses))
		for i, s := range statuses {
			statusList[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, statusList)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []*domain.Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

func (r *ScenarioRepository) UpdateStatus(userID, id string, status domain.ScenarioStatus) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE scenarios SET status = $3, updated_at = now() WHERE user_id = $1 AND id = $2`,
		userID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScenarioNotFound
	}
	return nil
}

var _ domain.ScenarioRepository = (*ScenarioRepository)(nil)
