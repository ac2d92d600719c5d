package orders

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CheckoutMessage is the command payload for placing an order on behalf of a
// user, typically dispatched from a queue or an admin tool rather than the
// HTTP checkout endpoint.
type CheckoutMessage struct {
	UserID uuid.UUID     `json:"user_id"`
	Input  CheckoutInput `json:"input"`
}

func (e CheckoutMessage) Type() string { return "order.checkout" }

type CheckoutHandler struct {
	repo RepositoryManager
}

func NewCheckoutHandler(repo RepositoryManager) *CheckoutHandler {
	return &CheckoutHandler{repo: repo}
}

func (h *CheckoutHandler) Execute(ctx context.Context, event CheckoutMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during checkout",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CheckoutHandler) execute(ctx context.Context, event CheckoutMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	order := &Order{
		UserID:      event.UserID,
		Address:     event.Input.Address,
		Items:       event.Input.Items,
		PlatformFee: event.Input.PlatformFee,
		DeliveryFee: event.Input.DeliveryFee,
		Taxes:       event.Input.Taxes,
		Discount:    event.Input.Discount,
		TotalPaid:   event.Input.TotalPaid,
		Status:      OrderStatusPending,
	}

	// Totals surface their own sentinel; keep them out of the generic wrap.
	if err := order.ReconcileTotals(); err != nil {
		return err
	}

	if err := order.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid checkout payload")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Orders().CreateTx(ctx, tx, order); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create order")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "checkout transaction failed")
	}

	return nil
}
