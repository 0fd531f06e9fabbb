package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/adapter"
	"recharge-platform/internal/domain/ports/repository"
	"recharge-platform/internal/infra/logging"
	"recharge-platform/internal/infra/metrics"
)

// Compile-time check
var _ SaleUseCase = (*saleUC)(nil)

type SaleOutcome string

const (
	SaleOutcomeApproved SaleOutcome = "approved"
	// SaleOutcomePendingDelivery means the sale went through but the code
	// pool was exhausted; the purchase sits in the fallback queue until an
	// operator assigns a code. Not an error.
	SaleOutcomePendingDelivery SaleOutcome = "pending_code_delivery"
	SaleOutcomeRejected        SaleOutcome = "rejected"
)

// ReasonNoAvailableCodes is the delivery-failure reason stamped on purchases
// created while the pool is exhausted.
const ReasonNoAvailableCodes = "no_available_codes"

type SellRequest struct {
	PlanID        string
	CustomerID    string
	ResellerID    string
	PaymentMethod string
	Customer      model.CustomerInfo
}

type SaleResult struct {
	Outcome  SaleOutcome
	Purchase *model.Purchase
	Code     *model.RechargeCode
}

type SaleUseCase interface {
	// Sell charges the buyer and tries to allocate one code for the plan.
	// Pool exhaustion is an expected outcome (pending delivery), not an error.
	Sell(ctx context.Context, req SellRequest) (*SaleResult, error)
	// AssignCode resolves a pending purchase with a specific available code
	// picked by an operator. The code must belong to the purchase's plan.
	AssignCode(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error)
	// ListPendingDelivery returns the fallback queue, oldest first.
	ListPendingDelivery(ctx context.Context) ([]*model.Purchase, error)
}

type saleUC struct {
	codes     repository.RechargeCodeRepository
	purchases repository.PurchaseRepository
	plans     repository.PlanRepository
	gateway   adapter.PaymentGateway
	txm       repository.TransactionManager
	now       func() time.Time
	log       *zerolog.Logger
}

func NewSaleUseCase(
	codes repository.RechargeCodeRepository,
	purchases repository.PurchaseRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	txm repository.TransactionManager,
	logger *zerolog.Logger,
) *saleUC {
	return &saleUC{
		codes:     codes,
		purchases: purchases,
		plans:     plans,
		gateway:   gateway,
		txm:       txm,
		now:       time.Now,
		log:       logger,
	}
}

func (u *saleUC) Sell(ctx context.Context, req SellRequest) (*SaleResult, error) {
	defer logging.TraceDuration(u.log, "SaleUC.Sell")()
	if req.PlanID == "" || req.CustomerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithCustomerID(ctx, req.CustomerID)
	log := logging.With(ctx, u.log)
	plan, err := u.plans.FindByID(ctx, repository.NoTX, req.PlanID)
	if err != nil {
		return nil, err
	}

	charge, err := u.gateway.Charge(ctx, plan.Value, req.PaymentMethod, fmt.Sprintf("recharge plan %s", plan.Name))
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}

	now := u.now()
	p := &model.Purchase{
		ID:              ulid.Make().String(),
		CustomerID:      req.CustomerID,
		PlanID:          plan.ID,
		ResellerID:      req.ResellerID,
		Amount:          plan.Value,
		PaymentMethod:   req.PaymentMethod,
		PaymentID:       charge.PaymentID,
		CreatedAt:       now,
		Customer:        req.Customer,
		ExpiryReminders: model.NewReminderSet(),
	}

	if !charge.Approved {
		p.Status = model.PurchaseStatusRejected
		if err := u.purchases.Save(ctx, repository.NoTX, p); err != nil {
			return nil, err
		}
		metrics.IncSale(string(SaleOutcomeRejected))
		log.Info().Str("purchase_id", p.ID).Str("reason", charge.Reason).Msg("payment rejected")
		return &SaleResult{Outcome: SaleOutcomeRejected, Purchase: p}, nil
	}

	// Allocation and purchase creation happen in one transaction so a failure
	// partway never leaves a sold code without its approved purchase.
	var code *model.RechargeCode
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.codes.AllocateOne(ctx, tx, plan.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				p.Status = model.PurchaseStatusPendingDelivery
				p.CodeDeliveryFailureReason = ReasonNoAvailableCodes
				return u.purchases.Save(ctx, tx, p)
			}
			return err
		}
		code = c
		approvedAt := u.now()
		p.Status = model.PurchaseStatusApproved
		p.RechargeCode = c.Code
		p.AssignedCodeID = &c.ID
		p.ApprovedAt = &approvedAt
		p.ExpiresAt = approvedAt.Add(time.Duration(plan.ValidityDays) * 24 * time.Hour)
		return u.purchases.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	if code == nil {
		metrics.IncSale(string(SaleOutcomePendingDelivery))
		log.Warn().Str("plan_id", plan.ID).Str("purchase_id", p.ID).Msg("code pool exhausted, purchase queued for manual delivery")
		return &SaleResult{Outcome: SaleOutcomePendingDelivery, Purchase: p}, nil
	}
	metrics.IncSale(string(SaleOutcomeApproved))
	metrics.IncCodesAllocated("sale")
	log.Info().Str("plan_id", plan.ID).Str("purchase_id", p.ID).Str("code_id", code.ID).Msg("code allocated")
	return &SaleResult{Outcome: SaleOutcomeApproved, Purchase: p, Code: code}, nil
}

func (u *saleUC) AssignCode(ctx context.Context, purchaseID, codeID string) (*model.Purchase, error) {
	defer logging.TraceDuration(u.log, "SaleUC.AssignCode")()
	if purchaseID == "" || codeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithPurchaseID(ctx, purchaseID)

	var result *model.Purchase
	err := u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrPurchaseNotFound
			}
			return err
		}
		if p.Status != model.PurchaseStatusPendingDelivery {
			return domain.ErrPurchaseNotPending
		}

		c, err := u.codes.FindByID(ctx, tx, codeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}
		if c.PlanID != p.PlanID {
			return domain.ErrPlanMismatch
		}

		c, err = u.codes.AllocateByID(ctx, tx, codeID)
		if err != nil {
			return err
		}

		plan, err := u.plans.FindByID(ctx, tx, p.PlanID)
		if err != nil {
			return err
		}

		approvedAt := u.now()
		p.Status = model.PurchaseStatusApproved
		p.RechargeCode = c.Code
		p.AssignedCodeID = &c.ID
		p.ApprovedAt = &approvedAt
		p.CodeDeliveryFailureReason = ""
		p.ExpiresAt = approvedAt.Add(time.Duration(plan.ValidityDays) * 24 * time.Hour)
		// The purchase is new from the reminder scheduler's point of view.
		p.ExpiryReminders = model.NewReminderSet()
		if err := u.purchases.Save(ctx, tx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCodesAllocated("manual")
	logging.With(ctx, u.log).Info().Str("code_id", codeID).Msg("pending purchase resolved by manual assignment")
	return result, nil
}

func (u *saleUC) ListPendingDelivery(ctx context.Context) ([]*model.Purchase, error) {
	return u.purchases.ListPendingDelivery(ctx, repository.NoTX)
}
