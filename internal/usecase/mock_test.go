package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/adapter"
	"recharge-platform/internal/domain/ports/repository"
)

// =============================
// Adapters
// =============================

// ---- Mock Messenger ----

type MockMessenger struct {
	mu   sync.Mutex
	Sent []SentMessage

	SendFunc func(ctx context.Context, phoneNumber, message string) (adapter.SendResult, error)
}

type SentMessage struct {
	Phone   string
	Message string
}

var _ adapter.Messenger = (*MockMessenger)(nil)

func (m *MockMessenger) Name() string { return "mock" }

func (m *MockMessenger) Send(ctx context.Context, phoneNumber, message string) (adapter.SendResult, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, phoneNumber, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{Phone: phoneNumber, Message: message})
	return adapter.SendResult{MessageID: uuid.NewString()}, nil
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	ChargeFunc func(ctx context.Context, amount int64, method, description string) (adapter.ChargeResult, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) Charge(ctx context.Context, amount int64, method, description string) (adapter.ChargeResult, error) {
	if g.ChargeFunc != nil {
		return g.ChargeFunc(ctx, amount, method, description)
	}
	return adapter.ChargeResult{Approved: true, PaymentID: uuid.NewString()}, nil
}

// =============================
// Repositories
// =============================

// ---- Transaction manager ----

// mockTxManager runs the callback directly; the in-memory repos below are
// already atomic under their own mutexes.
type mockTxManager struct{}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// ---- Mock RechargeCodeRepository ----

type MockCodeRepo struct {
	mu   sync.Mutex
	data map[string]*model.RechargeCode // by id

	InsertIgnoreDuplicatesFunc func(ctx context.Context, tx repository.Tx, codes []*model.RechargeCode) ([]*model.RechargeCode, error)
	AllocateOneFunc            func(ctx context.Context, tx repository.Tx, planID string) (*model.RechargeCode, error)
	AllocateByIDFunc           func(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error)
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error)
}

var _ repository.RechargeCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{data: map[string]*model.RechargeCode{}}
}

func (r *MockCodeRepo) InsertIgnoreDuplicates(ctx context.Context, tx repository.Tx, codes []*model.RechargeCode) ([]*model.RechargeCode, error) {
	if r.InsertIgnoreDuplicatesFunc != nil {
		return r.InsertIgnoreDuplicatesFunc(ctx, tx, codes)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := make(map[string]struct{}, len(r.data))
	for _, c := range r.data {
		existing[c.Code] = struct{}{}
	}
	var inserted []*model.RechargeCode
	for _, c := range codes {
		if _, dup := existing[c.Code]; dup {
			continue
		}
		existing[c.Code] = struct{}{}
		cp := *c
		r.data[c.ID] = &cp
		inserted = append(inserted, c)
	}
	return inserted, nil
}

func (r *MockCodeRepo) AllocateOne(ctx context.Context, tx repository.Tx, planID string) (*model.RechargeCode, error) {
	if r.AllocateOneFunc != nil {
		return r.AllocateOneFunc(ctx, tx, planID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var available []*model.RechargeCode
	for _, c := range r.data {
		if c.PlanID == planID && c.Status == model.CodeStatusAvailable {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(available, func(i, j int) bool {
		if available[i].CreatedAt.Equal(available[j].CreatedAt) {
			return available[i].ID < available[j].ID
		}
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})
	c := available[0]
	now := time.Now()
	c.Status = model.CodeStatusSold
	c.SoldAt = &now
	cp := *c
	return &cp, nil
}

func (r *MockCodeRepo) AllocateByID(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error) {
	if r.AllocateByIDFunc != nil {
		return r.AllocateByIDFunc(ctx, tx, codeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[codeID]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	if c.Status != model.CodeStatusAvailable {
		return nil, domain.ErrCodeNotAvailable
	}
	now := time.Now()
	c.Status = model.CodeStatusSold
	c.SoldAt = &now
	cp := *c
	return &cp, nil
}

func (r *MockCodeRepo) FindByID(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, codeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[codeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCodeRepo) CountByStatus(ctx context.Context, tx repository.Tx, planID string) (map[model.CodeStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.CodeStatus]int)
	for _, c := range r.data {
		if c.PlanID == planID {
			out[c.Status]++
		}
	}
	return out, nil
}

func (r *MockCodeRepo) ExpireOverdue(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	now := time.Now()
	for _, c := range r.data {
		if c.Status == model.CodeStatusAvailable && !c.ExpiresAt.After(now) {
			c.Status = model.CodeStatusExpired
			n++
		}
	}
	return n, nil
}

// ---- Mock PurchaseRepository ----

type MockPurchaseRepo struct {
	mu   sync.Mutex
	data map[string]*model.Purchase // by id

	SaveFunc                   func(ctx context.Context, tx repository.Tx, p *model.Purchase) error
	FindByIDFunc               func(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error)
	ListReminderCandidatesFunc func(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Purchase, error)
	MarkReminderSentFunc       func(ctx context.Context, tx repository.Tx, purchaseID string, stage model.ReminderStage, sentAt time.Time, messageID string) (bool, error)
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{data: map[string]*model.Purchase{}}
}

func clonePurchase(p *model.Purchase) *model.Purchase {
	cp := *p
	cp.ExpiryReminders = make(map[model.ReminderStage]model.ReminderRecord, len(p.ExpiryReminders))
	for k, v := range p.ExpiryReminders {
		cp.ExpiryReminders[k] = v
	}
	return &cp
}

func (r *MockPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = clonePurchase(p)
	return nil
}

func (r *MockPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePurchase(p), nil
}

func (r *MockPurchaseRepo) ListPendingDelivery(ctx context.Context, tx repository.Tx) ([]*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.Status == model.PurchaseStatusPendingDelivery {
			out = append(out, clonePurchase(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MockPurchaseRepo) ListReminderCandidates(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Purchase, error) {
	if r.ListReminderCandidatesFunc != nil {
		return r.ListReminderCandidatesFunc(ctx, tx, now)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.Status == model.PurchaseStatusApproved && p.RechargeCode != "" && p.ExpiresAt.After(now) {
			out = append(out, clonePurchase(p))
		}
	}
	return out, nil
}

func (r *MockPurchaseRepo) MarkReminderSent(ctx context.Context, tx repository.Tx, purchaseID string, stage model.ReminderStage, sentAt time.Time, messageID string) (bool, error) {
	if r.MarkReminderSentFunc != nil {
		return r.MarkReminderSentFunc(ctx, tx, purchaseID, stage, sentAt, messageID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[purchaseID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.ExpiryReminders[stage].Sent {
		return false, nil
	}
	p.ExpiryReminders[stage] = model.ReminderRecord{Sent: true, SentAt: &sentAt, MessageID: messageID}
	return true, nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	r := &MockPlanRepo{data: map[string]*model.Plan{}}
	for _, p := range plans {
		r.data[p.ID] = p
	}
	return r
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
