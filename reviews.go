package orders

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// ReviewInput is the payload accepted when submitting a review for an order.
type ReviewInput struct {
	OrderID       uuid.UUID `json:"orderId"`
	Rating        int       `json:"rating"`
	ReviewText    string    `json:"reviewText"`
	SelectedItems []string  `json:"selectedItems"`
}

// ReviewGate enforces the preconditions around review submission. Checks run
// in a fixed order so a caller always gets the most specific failure first:
// order existence, then ownership, then delivery status, then payload
// validation, then the duplicate guard at insert time.
type ReviewGate struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
	timeProvider func() time.Time
}

// NewReviewGate creates a ReviewGate over the given repositories.
func NewReviewGate(repo RepositoryManager) *ReviewGate {
	return &ReviewGate{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		timeProvider: time.Now,
	}
}

func (g *ReviewGate) WithLogger(logger Logger) *ReviewGate {
	g.logger = logger
	return g
}

func (g *ReviewGate) WithActivitySink(sink ActivitySink) *ReviewGate {
	g.activitySink = normalizeActivitySink(sink)
	return g
}

// Submit creates a review for a delivered order owned by the user.
//
// Ownership failures surface as ErrReviewForbidden rather than a not-found:
// the order ID was necessarily obtained legitimately (the reviewer saw the
// order somewhere), so there is nothing to hide, and the 403 tells an
// integrator exactly what went wrong.
func (g *ReviewGate) Submit(ctx context.Context, userID uuid.UUID, input ReviewInput) (*Review, error) {
	order, err := g.repo.Orders().GetByID(ctx, input.OrderID.String())
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || repository.IsRecordNotFound(err) {
			return nil, ErrOrderNotFound
		}
		g.logger.Error("Submit order lookup error", "error", err)
		return nil, err
	}

	if order.UserID != userID {
		g.logger.Info("Submit review denied", "order", input.OrderID.String())
		return nil, ErrReviewForbidden
	}

	if order.Status != OrderStatusDelivered {
		g.logger.Info("Submit review rejected",
			"order", input.OrderID.String(),
			"status", string(order.Status),
		)
		return nil, ErrInvalidOrderState
	}

	review := &Review{
		UserID:             userID,
		OrderID:            order.ID,
		Rating:             input.Rating,
		ReviewText:         input.ReviewText,
		SelectedItems:      input.SelectedItems,
		IsVerifiedPurchase: true,
		Voters:             []string{},
	}

	if err := review.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid review payload").
			WithTextCode("INVALID_REVIEW")
	}

	created, err := g.repo.Reviews().Create(ctx, review)
	if err != nil {
		return nil, err
	}

	g.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventReviewSubmitted,
		Actor:     ActorRef{ID: userID.String(), Type: "user"},
		UserID:    userID.String(),
		OrderID:   order.ID.String(),
		Metadata: map[string]any{
			"rating": created.Rating,
		},
	})

	return created, nil
}

// ListForOrder returns the reviews recorded against an order, newest first.
func (g *ReviewGate) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]*Review, error) {
	return g.repo.Reviews().ListByOrder(ctx, orderID)
}

// MarkHelpful registers a helpful vote from voterID. Voting twice is a no-op.
func (g *ReviewGate) MarkHelpful(ctx context.Context, reviewID uuid.UUID, voterID string) (*Review, error) {
	if voterID == "" {
		return nil, errors.New("voter id is required", errors.CategoryBadInput)
	}
	return g.repo.Reviews().AddHelpfulVote(ctx, reviewID, voterID)
}

func (g *ReviewGate) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = g.timeProvider()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := g.activitySink.Record(ctx, event); err != nil {
		g.logger.Warn("activity sink record error: %v", err)
	}
}
