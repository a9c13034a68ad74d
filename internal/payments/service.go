package payments

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/internal/orders"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records external payment outcomes against orders.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
}

// CreateInput is the processor result reported by the checkout client.
type CreateInput struct {
	OrderID           uuid.UUID           `json:"order_id" validate:"required"`
	ExternalPaymentID string              `json:"external_payment_id" validate:"required,max=200"`
	ExternalOrderID   string              `json:"external_order_id" validate:"required,max=200"`
	Amount            decimal.Decimal     `json:"amount"`
	Status            enums.PaymentStatus `json:"status" validate:"required"`
	PaidAt            *time.Time          `json:"paid_at"`
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	guard  *access.Guard
	now    func() time.Time
}

// NewService wires payment dependencies.
func NewService(repo Repository, orderRepo orders.Repository, tx txRunner, guard *access.Guard) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	return &service{repo: repo, orders: orderRepo, tx: tx, guard: guard, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.Payment, error) {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
		}
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
		}
		externalPaymentID := strings.TrimSpace(input.ExternalPaymentID)
		externalOrderID := strings.TrimSpace(input.ExternalOrderID)
		if externalPaymentID == "" || externalOrderID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "external payment and order ids required")
		}
		if _, err := s.ownedOrder(ctx, caller, input.OrderID); err != nil {
			return nil, err
		}

		paidAt := s.now().UTC()
		if input.PaidAt != nil {
			paidAt = input.PaidAt.UTC()
		}
		payment := &models.Payment{
			OrderID:           input.OrderID,
			ExternalPaymentID: externalPaymentID,
			ExternalOrderID:   externalOrderID,
			Amount:            input.Amount.Round(2),
			Status:            input.Status,
			PaidAt:            paidAt,
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
			if err := s.orders.WithTx(tx).UpdateStatus(ctx, payment.OrderID, enums.OrderStatusForPayment(payment.Status)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return payment, nil
	})
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	return access.Run(ctx, s.guard, access.IdentityHard, func(ctx context.Context, caller access.Principal) (*models.Payment, error) {
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
		}
		payment, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.NotFound("payment")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if _, err := s.ownedOrder(ctx, caller, payment.OrderID); err != nil {
			return nil, err
		}
		// Only an admin may confirm a payment; owners can still report a decline.
		if status == enums.PaymentStatusSuccess && payment.Status != enums.PaymentStatusSuccess && !caller.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an admin can confirm a payment")
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
			}
			if err := s.orders.WithTx(tx).UpdateStatus(ctx, payment.OrderID, enums.OrderStatusForPayment(status)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		payment.Status = status
		return payment, nil
	})
}

// ownedOrder loads the order and checks the caller may pay for it.
func (s *service) ownedOrder(ctx context.Context, caller access.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if caller.IsAdmin() {
		return order, nil
	}
	if caller.User == nil || order.UserID != caller.UserID() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}
