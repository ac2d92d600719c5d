package orders

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubmitReviewMessage is the command payload for recording a review. It runs
// the same precondition chain as the HTTP path: order existence, ownership,
// delivered status, payload validation, then the duplicate guard at insert.
type SubmitReviewMessage struct {
	UserID        uuid.UUID `json:"user_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Rating        int       `json:"rating"`
	ReviewText    string    `json:"review_text"`
	SelectedItems []string  `json:"selected_items"`
}

func (e SubmitReviewMessage) Type() string { return "review.submit" }

type SubmitReviewHandler struct {
	repo RepositoryManager
}

func NewSubmitReviewHandler(repo RepositoryManager) *SubmitReviewHandler {
	return &SubmitReviewHandler{repo: repo}
}

func (h *SubmitReviewHandler) Execute(ctx context.Context, event SubmitReviewMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during review submission",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SubmitReviewHandler) execute(ctx context.Context, event SubmitReviewMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := h.repo.Orders().GetByID(ctx, event.OrderID.String())
		if err != nil {
			return ErrOrderNotFound
		}

		if order.UserID != event.UserID {
			return ErrReviewForbidden
		}

		if order.Status != OrderStatusDelivered {
			return ErrInvalidOrderState
		}

		review := &Review{
			UserID:             event.UserID,
			OrderID:            event.OrderID,
			Rating:             event.Rating,
			ReviewText:         event.ReviewText,
			SelectedItems:      event.SelectedItems,
			IsVerifiedPurchase: true,
			Voters:             []string{},
		}

		if err := review.Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid review payload")
		}

		if _, err := h.repo.Reviews().CreateTx(ctx, tx, review); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "review submission transaction failed")
	}

	return nil
}
