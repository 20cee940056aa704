package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/tamio/tamio-backend/internal/domain"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/service"
	"github.com/tamio/tamio-backend/internal/testutil"
)

func setupUserContext(c echo.Context, userID string) {
	c.Set(middleware.UserIDKey, userID)
}

func newObligationHandler() (*ObligationHandler, *testutil.MockObligationRepository) {
	repo := testutil.NewMockObligationRepository()
	schedules := service.NewScheduleService(repo, zerolog.Nop())
	svc := service.NewObligationService(repo, schedules, service.NewStaticCurrencyConverter(), "USD", 5*time.Second, zerolog.Nop())
	return NewObligationHandler(svc), repo
}

func TestCreateObligation_Success(t *testing.T) {
	e := echo.New()
	handler, repo := newObligationHandler()

	startDate := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	reqBody := `{"type": "subscription", "baseAmount": "49.99", "currency": "USD", "frequency": "monthly", "startDate": "` + startDate + `", "category": "software"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupUserContext(c, "user_1")

	if err := handler.CreateObligation(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response domain.ObligationAgreement
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.ID == "" {
		t.Error("Expected a generated agreement ID")
	}
	if response.Type != domain.ObligationSubscription {
		t.Errorf("Expected type subscription, got %s", response.Type)
	}
	if response.UserID != "user_1" {
		t.Errorf("Expected userId user_1, got %s", response.UserID)
	}

	schedules, err := repo.ListSchedules(response.ID)
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(schedules) == 0 {
		t.Error("Expected schedules to be materialized on create")
	}
}

func TestCreateObligation_InvalidAmount(t *testing.T) {
	e := echo.New()
	handler, _ := newObligationHandler()

	reqBody := `{"type": "subscription", "baseAmount": "not-a-number", "frequency": "monthly", "startDate": "2026-10-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupUserContext(c, "user_1")

	if err := handler.CreateObligation(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem details: %v", err)
	}
	if problem.Type != ErrorTypeValidation {
		t.Errorf("Expected validation problem type, got %s", problem.Type)
	}
}

func TestGetObligation_NotFound(t *testing.T) {
	e := echo.New()
	handler, _ := newObligationHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/obligations/obl_missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("obl_missing")
	setupUserContext(c, "user_1")

	if err := handler.GetObligation(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestRecordPayment_Success(t *testing.T) {
	e := echo.New()
	handler, repo := newObligationHandler()

	reqBody := `{"amount": "320.00", "paymentDate": "2026-09-01", "vendorName": "AWS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/obligations/payments", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupUserContext(c, "user_1")

	if err := handler.RecordPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response domain.PaymentEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != domain.PaymentCompleted {
		t.Errorf("Expected completed status, got %s", response.Status)
	}
	if len(repo.Payments) != 1 {
		t.Errorf("Expected 1 stored payment, got %d", len(repo.Payments))
	}
}
