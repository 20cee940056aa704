package testutil

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tamio/tamio-backend/internal/domain"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User)}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(id string) (*domain.User, error) {
	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// ListAll returns every user
func (m *MockUserRepository) ListAll() ([]*domain.User, error) {
	var users []*domain.User
	for _, u := range m.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	Accounts      map[string]*domain.CashAccount
	SumBalancesFn func(userID string) (decimal.Decimal, error)
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[string]*domain.CashAccount)}
}

func (m *MockAccountRepository) Create(account *domain.CashAccount) (*domain.CashAccount, error) {
	if account.ID == "" {
		account.ID = domain.NewID("acct")
	}
	m.Accounts[account.ID] = account
	return account, nil
}

func (m *MockAccountRepository) GetByID(userID, id string) (*domain.CashAccount, error) {
	if a, ok := m.Accounts[id]; ok && a.UserID == userID {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) ListByUser(userID string) ([]*domain.CashAccount, error) {
	var accounts []*domain.CashAccount
	for _, a := range m.Accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *MockAccountRepository) Update(account *domain.CashAccount) (*domain.CashAccount, error) {
	if _, ok := m.Accounts[account.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	m.Accounts[account.ID] = account
	return account, nil
}

func (m *MockAccountRepository) Delete(userID, id string) error {
	if a, ok := m.Accounts[id]; ok && a.UserID == userID {
		delete(m.Accounts, id)
		return nil
	}
	return domain.ErrAccountNotFound
}

func (m *MockAccountRepository) SumBalances(userID string) (decimal.Decimal, error) {
	if m.SumBalancesFn != nil {
		return m.SumBalancesFn(userID)
	}
	total := decimal.Zero
	for _, a := range m.Accounts {
		if a.UserID == userID {
			total = total.Add(a.Balance)
		}
	}
	return total, nil
}

// MockClientRepository is a mock implementation of domain.ClientRepository
type MockClientRepository struct {
	Clients    map[string]*domain.Client
	GetByIDFn  func(userID, id string) (*domain.Client, error)
	ListByUserFn func(userID string, activeOnly bool) ([]*domain.Client, error)
}

// NewMockClientRepository creates a new MockClientRepository
func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{Clients: make(map[string]*domain.Client)}
}

func (m *MockClientRepository) Create(client *domain.Client) (*domain.Client, error) {
	if client.ID == "" {
		client.ID = domain.NewID("clt")
	}
	m.Clients[client.ID] = client
	return client, nil
}

func (m *MockClientRepository) GetByID(userID, id string) (*domain.Client, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(userID, id)
	}
	if c, ok := m.Clients[id]; ok && c.UserID == userID {
		return c, nil
	}
	return nil, domain.ErrClientNotFound
}

func (m *MockClientRepository) ListByUser(userID string, activeOnly bool) ([]*domain.Client, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(userID, activeOnly)
	}
	var clients []*domain.Client
	for _, c := range m.Clients {
		if c.UserID != userID {
			continue
		}
		if activeOnly && c.Status != domain.ClientStatusActive {
			continue
		}
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (m *MockClientRepository) Update(client *domain.Client) (*domain.Client, error) {
	if _, ok := m.Clients[client.ID]; !ok {
		return nil, domain.ErrClientNotFound
	}
	m.Clients[client.ID] = client
	return client, nil
}

func (m *MockClientRepository) Delete(userID, id string) error {
	if c, ok := m.Clients[id]; ok && c.UserID == userID {
		delete(m.Clients, id)
		return nil
	}
	return domain.ErrClientNotFound
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository
type MockExpenseRepository struct {
	Buckets      map[string]*domain.ExpenseBucket
	ListByUserFn func(userID string) ([]*domain.ExpenseBucket, error)
}

// NewMockExpenseRepository creates a new MockExpenseRepository
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{Buckets: make(map[string]*domain.ExpenseBucket)}
}

func (m *MockExpenseRepository) Create(bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	if bucket.ID == "" {
		bucket.ID = domain.NewID("exp")
	}
	m.Buckets[bucket.ID] = bucket
	return bucket, nil
}

func (m *MockExpenseRepository) GetByID(userID, id string) (*domain.ExpenseBucket, error) {
	if b, ok := m.Buckets[id]; ok && b.UserID == userID {
		return b, nil
	}
	return nil, domain.ErrExpenseNotFound
}

func (m *MockExpenseRepository) ListByUser(userID string) ([]*domain.ExpenseBucket, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(userID)
	}
	var buckets []*domain.ExpenseBucket
	for _, b := range m.Buckets {
		if b.UserID == userID {
			buckets = append(buckets, b)
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].ID < buckets[j].ID })
	return buckets, nil
}

func (m *MockExpenseRepository) Update(bucket *domain.ExpenseBucket) (*domain.ExpenseBucket, error) {
	if _, ok := m.Buckets[bucket.ID]; !ok {
		return nil, domain.ErrExpenseNotFound
	}
	m.Buckets[bucket.ID] = bucket
	return bucket, nil
}

func (m *MockExpenseRepository) Delete(userID, id string) error {
	if b, ok := m.Buckets[id]; ok && b.UserID == userID {
		delete(m.Buckets, id)
		return nil
	}
	return domain.ErrExpenseNotFound
}

// MockObligationRepository is a mock implementation of domain.ObligationRepository
type MockObligationRepository struct {
	Agreements map[string]*domain.ObligationAgreement
	Schedules  map[string]*domain.ObligationSchedule
	Payments   map[string]*domain.PaymentEvent

	CreateSchedulesFn func(schedules []*domain.ObligationSchedule) error
}

// NewMockObligationRepository creates a new MockObligationRepository
func NewMockObligationRepository() *MockObligationRepository {
	return &MockObligationRepository{
		Agreements: make(map[string]*domain.ObligationAgreement),
		Schedules:  make(map[string]*domain.ObligationSchedule),
		Payments:   make(map[string]*domain.PaymentEvent),
	}
}

func (m *MockObligationRepository) Create(agreement *domain.ObligationAgreement) (*domain.ObligationAgreement, error) {
	if agreement.ID == "" {
		agreement.ID = domain.NewID("obl")
	}
	m.Agreements[agreement.ID] = agreement
	return agreement, nil
}

func (m *MockObligationRepository) GetByID(userID, id string) (*domain.ObligationAgreement, error) {
	if a, ok := m.Agreements[id]; ok && a.UserID == userID {
		return a, nil
	}
	return nil, domain.ErrObligationNotFound
}

func (m *MockObligationRepository) ListByUser(userID string, includeSuperseded bool) ([]*domain.ObligationAgreement, error) {
	var agreements []*domain.ObligationAgreement
	for _, a := range m.Agreements {
		if a.UserID != userID {
			continue
		}
		if !includeSuperseded && a.SupersededBy != nil {
			continue
		}
		agreements = append(agreements, a)
	}
	sort.Slice(agreements, func(i, j int) bool { return agreements[i].ID < agreements[j].ID })
	return agreements, nil
}

func (m *MockObligationRepository) MarkSuperseded(userID, id, successorID string) error {
	a, ok := m.Agreements[id]
	if !ok || a.UserID != userID {
		return domain.ErrObligationNotFound
	}
	a.SupersededBy = &successorID
	return nil
}

func (m *MockObligationRepository) CreateSchedules(schedules []*domain.ObligationSchedule) error {
	if m.CreateSchedulesFn != nil {
		return m.CreateSchedulesFn(schedules)
	}
	for _, s := range schedules {
		m.Schedules[s.ID] = s
	}
	return nil
}

func (m *MockObligationRepository) ListSchedules(obligationID string) ([]*domain.ObligationSchedule, error) {
	var schedules []*domain.ObligationSchedule
	for _, s := range m.Schedules {
		if s.ObligationID == obligationID {
			schedules = append(schedules, s)
		}
	}
	sortSchedules(schedules)
	return schedules, nil
}

func (m *MockObligationRepository) ListSchedulesByUser(userID string, from, to time.Time, statuses []domain.ScheduleStatus) ([]*domain.ObligationSchedule, error) {
	allowed := make(map[domain.ScheduleStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}

	var schedules []*domain.ObligationSchedule
	for _, s := range m.Schedules {
		agreement, ok := m.Agreements[s.ObligationID]
		if !ok || agreement.UserID != userID {
			continue
		}
		if s.DueDate.Before(from) || s.DueDate.After(to) {
			continue
		}
		if len(allowed) > 0 && !allowed[s.Status] {
			continue
		}
		schedules = append(schedules, s)
	}
	sortSchedules(schedules)
	return schedules, nil
}

func (m *MockObligationRepository) DeleteFutureSchedules(obligationID string, from time.Time) (int64, error) {
	var deleted int64
	for id, s := range m.Schedules {
		if s.ObligationID != obligationID || s.DueDate.Before(from) {
			continue
		}
		if s.Status == domain.ScheduleScheduled || s.Status == domain.ScheduleDue {
			delete(m.Schedules, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockObligationRepository) UpdateScheduleStatus(id string, status domain.ScheduleStatus) error {
	s, ok := m.Schedules[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	s.Status = status
	return nil
}

func (m *MockObligationRepository) CreatePayment(payment *domain.PaymentEvent) (*domain.PaymentEvent, error) {
	if payment.ID == "" {
		payment.ID = domain.NewID("pay")
	}
	m.Payments[payment.ID] = payment
	return payment, nil
}

func (m *MockObligationRepository) ListPaymentsByUser(userID string, from, to time.Time) ([]*domain.PaymentEvent, error) {
	var payments []*domain.PaymentEvent
	for _, p := range m.Payments {
		if p.UserID != userID || p.PaymentDate.Before(from) || p.PaymentDate.After(to) {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func sortSchedules(schedules []*domain.ObligationSchedule) {
	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].DueDate.Equal(schedules[j].DueDate) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].DueDate.Before(schedules[j].DueDate)
	})
}

// MockScenarioRepository is a mock implementation of domain.ScenarioRepository
type MockScenarioRepository struct {
	Scenarios map[string]*domain.Scenario
}

// NewMockScenarioRepository creates a new MockScenarioRepository
func NewMockScenarioRepository() *MockScenarioRepository {
	return &MockScenarioRepository{Scenarios: make(map[string]*domain.Scenario)}
}

func (m *MockScenarioRepository) Create(scenario *domain.Scenario) (*domain.Scenario, error) {
	if scenario.ID == "" {
		scenario.ID = domain.NewID("scn")
	}
	m.Scenarios[scenario.ID] = scenario
	return scenario, nil
}

func (m *MockScenarioRepository) GetByID(userID, id string) (*domain.Scenario, error) {
	if s, ok := m.Scenarios[id]; ok && s.UserID == userID {
		return s, nil
	}
	return nil, domain.ErrScenarioNotFound
}

func (m *MockScenarioRepository) ListByUser(userID string, statuses []domain.ScenarioStatus) ([]*domain.Scenario, error) {
	allowed := make(map[domain.ScenarioStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var scenarios []*domain.Scenario
	for _, s := range m.Scenarios {
		if s.UserID != userID {
			continue
		}
		if len(allowed) > 0 && !allowed[s.Status] {
			continue
		}
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ID < scenarios[j].ID })
	return scenarios, nil
}

func (m *MockScenarioRepository) UpdateStatus(userID, id string, status domain.ScenarioStatus) error {
	s, ok := m.Scenarios[id]
	if !ok || s.UserID != userID {
		return domain.ErrScenarioNotFound
	}
	s.Status = status
	return nil
}

// MockRuleRepository is a mock implementation of domain.RuleRepository
type MockRuleRepository struct {
	Rules        map[string]*domain.FinancialRule
	ListByUserFn func(userID string, activeOnly bool) ([]*domain.FinancialRule, error)
}

// NewMockRuleRepository creates a new MockRuleRepository
func NewMockRuleRepository() *MockRuleRepository {
	return &MockRuleRepository{Rules: make(map[string]*domain.FinancialRule)}
}

func (m *MockRuleRepository) Create(rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	if rule.ID == "" {
		rule.ID = domain.NewID("rule")
	}
	m.Rules[rule.ID] = rule
	return rule, nil
}

func (m *MockRuleRepository) GetByID(userID, id string) (*domain.FinancialRule, error) {
	if r, ok := m.Rules[id]; ok && r.UserID == userID {
		return r, nil
	}
	return nil, domain.ErrRuleNotFound
}

func (m *MockRuleRepository) ListByUser(userID string, activeOnly bool) ([]*domain.FinancialRule, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(userID, activeOnly)
	}
	var rules []*domain.FinancialRule
	for _, r := range m.Rules {
		if r.UserID != userID {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (m *MockRuleRepository) Update(rule *domain.FinancialRule) (*domain.FinancialRule, error) {
	if _, ok := m.Rules[rule.ID]; !ok {
		return nil, domain.ErrRuleNotFound
	}
	m.Rules[rule.ID] = rule
	return rule, nil
}

func (m *MockRuleRepository) Delete(userID, id string) error {
	if r, ok := m.Rules[id]; ok && r.UserID == userID {
		delete(m.Rules, id)
		return nil
	}
	return domain.ErrRuleNotFound
}

// MockTriggerRepository is a mock implementation of domain.TriggerRepository
type MockTriggerRepository struct {
	Instances map[string]*domain.TriggerInstance
}

// NewMockTriggerRepository creates a new MockTriggerRepository
func NewMockTriggerRepository() *MockTriggerRepository {
	return &MockTriggerRepository{Instances: make(map[string]*domain.TriggerInstance)}
}

func (m *MockTriggerRepository) CreateInstance(instance *domain.TriggerInstance) (*domain.TriggerInstance, error) {
	if instance.ID == "" {
		instance.ID = domain.NewID("inst")
	}
	m.Instances[instance.ID] = instance
	return instance, nil
}

func (m *MockTriggerRepository) GetInstance(userID, id string) (*domain.TriggerInstance, error) {
	if t, ok := m.Instances[id]; ok && t.UserID == userID {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockTriggerRepository) ListInstances(userID string, statuses []domain.InstanceStatus) ([]*domain.TriggerInstance, error) {
	allowed := make(map[domain.InstanceStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var instances []*domain.TriggerInstance
	for _, t := range m.Instances {
		if t.UserID != userID {
			continue
		}
		if len(allowed) > 0 && !allowed[t.Status] {
			continue
		}
		instances = append(instances, t)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].FiredAt.After(instances[j].FiredAt) })
	return instances, nil
}

func (m *MockTriggerRepository) LatestFiring(userID, triggerID, scopeKey string) (*domain.TriggerInstance, error) {
	var latest *domain.TriggerInstance
	for _, t := range m.Instances {
		if t.UserID != userID || t.TriggerID != triggerID || t.ScopeKey != scopeKey {
			continue
		}
		if latest == nil || t.FiredAt.After(latest.FiredAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (m *MockTriggerRepository) UpdateInstance(instance *domain.TriggerInstance) (*domain.TriggerInstance, error) {
	if _, ok := m.Instances[instance.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	m.Instances[instance.ID] = instance
	return instance, nil
}
