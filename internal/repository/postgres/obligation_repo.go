package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tamio/tamio-backend/internal/domain"
)

type ObligationRepository struct {
	db *pgxpool.Pool
}

func NewObligationRepository(db *pgxpool.Pool) *ObligationRepository {
	return &ObligationRepository{db: db}
}

const agreementColumns = `id, user_id, type, amount_type, amount_source, base_amount,
	variability, currency, frequency, start_date, end_date, category, account_id,
	client_id, expense_bucket_id, confidence, vendor_name, superseded_by, notes,
	created_at, updated_at`

func scanAgreement(row pgx.Row) (*domain.ObligationAgreement, error) {
	var a domain.ObligationAgreement
	var variability []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.AmountType, &a.AmountSource, &a.BaseAmount,
		&variability, &a.Currency, &a.Frequency, &a.StartDate, &a.EndDate, &a.Category, &a.AccountID,
		&a.ClientID, &a.ExpenseBucketID, &a.Confidence, &a.VendorName, &a.SupersededBy, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrObligationNotFound
		}
		return nil, err
	}
	if len(variability) > 0 {
		if err := json.Unmarshal(variability, &a.Variability); err != nil {
			return nil, fmt.Errorf("decode variability rule: %w", err)
		}
	}
	return &a, nil
}

func (r *ObligationRepository) Create(agreement *domain.ObligationAgreement) (*domain.ObligationAgreement, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if agreement.ID == "" {
		agreement.ID = domain.NewID("obl")
	}
	var variability []byte
	if agreement.Variability != nil {
		var err error
		variability, err = json.Marshal(agreement.Variability)
		if err != nil {
			return nil, fmt.Errorf("encode variability rule: %w", err)
		}
	}

	query := `
		INSERT INTO obligation_agreements (id, user_id, type, amount_type, amount_source,
			base_amount, variability, currency, frequency, start_date, end_date, category,
			account_id, client_id, expense_bucket_id, confidence, vendor_name, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + agreementColumns
	return scanAgreement(r.db.QueryRow(ctx, query,
		agreement.ID, agreement.UserID, agreement.Type, agreement.AmountType, agreement.AmountSource,
		agreement.BaseAmount, variability, agreement.Currency, agreement.Frequency,
		agreement.StartDate, agreement.EndDate, agreement.Category, agreement.AccountID,
		agreement.ClientID, agreement.ExpenseBucketID, agreement.Confidence,
		agreement.VendorName, agreement.Notes))
}

func (r *ObligationRepository) GetByID(userID, id string) (*domain.ObligationAgreement, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + agreementColumns + ` FROM obligation_agreements WHERE user_id = $1 AND id = $2`
	return scanAgreement(r.db.QueryRow(ctx, query, userID, id))
}

func (r *ObligationRepository) ListByUser(userID string, includeSuperseded bool) ([]*domain.ObligationAgreement, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + agreementColumns + ` FROM obligation_agreements WHERE user_id = $1`
	if !includeSuperseded {
		query += ` AND superseded_by IS NULL`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agreements []*domain.ObligationAgreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, a)
	}
	return agreements, rows.Err()
}

func (r *ObligationRepository) MarkSuperseded(userID, id, successorID string) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE obligation_agreements
		SET superseded_by = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2 AND superseded_by IS NULL`,
		userID, id, successorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrObligationNotFound
	}
	return nil
}

const scheduleColumns = `id, obligation_id, due_date, period_start, period_end,
	estimated_amount, estimate_source, confidence, status, created_at, updated_at`

func scanSchedule(row pgx.Row) (*domain.ObligationSchedule, error) {
	var s domain.ObligationSchedule
	err := row.Scan(&s.ID, &s.ObligationID, &s.DueDate, &s.PeriodStart, &s.PeriodEnd,
		&s.EstimatedAmount, &s.EstimateSource, &s.Confidence, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ObligationRepository) CreateSchedules(schedules []*domain.ObligationSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	ctx, cancel := opCtx()
	defer cancel()

	batch := &pgx.Batch{}
	for _, s := range schedules {
		batch.Queue(`
			INSERT INTO obligation_schedules (id, obligation_id, due_date, period_start,
				period_end, estimated_amount, estimate_source, confidence, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE
			SET estimated_amount = EXCLUDED.estimated_amount,
				estimate_source = EXCLUDED.estimate_source,
				confidence = EXCLUDED.confidence,
				updated_at = now()`,
			s.ID, s.ObligationID, s.DueDate, s.PeriodStart, s.PeriodEnd,
			s.EstimatedAmount, s.EstimateSource, s.Confidence, s.Status)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range schedules {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ObligationRepository) ListSchedules(obligationID string) ([]*domain.ObligationSchedule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + scheduleColumns + ` FROM obligation_schedules WHERE obligation_id = $1 ORDER BY due_date`
	rows, err := r.db.Query(ctx, query, obligationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ObligationRepository) ListSchedulesByUser(userID string, from, to time.Time, statuses []domain.ScheduleStatus) ([]*domain.ObligationSchedule, error) {
	ctx, cancel := opCtx()
	defer cancel()

	statusList := make([]string, len(statuses))
	for i, s := range statuses {
		statusList[i] = string(s)
	}

	query := `
		SELECT s.id, s.obligation_id, s.due_date, s.period_start, s.period_end,
			s.estimated_amount, s.estimate_source, s.confidence, s.status, s.created_at, s.updated_at
		FROM obligation_schedules s
		JOIN obligation_agreements a ON a.id = s.obligation_id
		WHERE a.user_id = $1 AND s.due_date BETWEEN $2 AND $3 AND s.status = ANY($4)
		ORDER BY s.due_date`
	rows, err := r.db.Query(ctx, query, userID, from, to, statusList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func collectSchedules(rows pgx.Rows) ([]*domain.ObligationSchedule, error) {
	var schedules []*domain.ObligationSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ObligationRepository) DeleteFutureSchedules(obligationID string, from time.Time) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM obligation_schedules
		WHERE obligation_id = $1 AND due_date >= $2 AND status IN ('scheduled', 'due')`,
		obligationID, from)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ObligationRepository) UpdateScheduleStatus(id string, status domain.ScheduleStatus) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE obligation_schedules SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

const paymentColumns = `id, user_id, obligation_id, schedule_id, amount, currency,
	payment_date, account_id, status, source, is_reconciled, vendor_name, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.PaymentEvent, error) {
	var p domain.PaymentEvent
	err := row.Scan(&p.ID, &p.UserID, &p.ObligationID, &p.ScheduleID, &p.Amount, &p.Currency,
		&p.PaymentDate, &p.AccountID, &p.Status, &p.Source, &p.IsReconciled, &p.VendorName,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ObligationRepository) CreatePayment(payment *domain.PaymentEvent) (*domain.PaymentEvent, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if payment.ID == "" {
		payment.ID = domain.NewID("pay")
	}
	query := `
		INSERT INTO payment_events (id, user_id, obligation_id, schedule_id, amount, currency,
			payment_date, account_id, status, source, is_reconciled, vendor_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query,
		payment.ID, payment.UserID, payment.ObligationID, payment.ScheduleID, payment.Amount,
		payment.Currency, payment.PaymentDate, payment.AccountID, payment.Status, payment.Source,
		payment.IsReconciled, payment.VendorName))
}

func (r *ObligationRepository) ListPaymentsByUser(userID string, from, to time.Time) ([]*domain.PaymentEvent, error) {
	ctx, cancel := opCtx()
	defer cancel()

	query := `SELECT ` + paymentColumns + ` FROM payment_events
		WHERE user_id = $1 AND payment_date BETWEEN $2 AND $3 ORDER BY payment_date`
	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.PaymentEvent
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

var _ domain.ObligationRepository = (*ObligationRepository)(nil)
