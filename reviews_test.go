package orders_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nikfoods/go-orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validReviewInput(orderID uuid.UUID) orders.ReviewInput {
	return orders.ReviewInput{
		OrderID:       orderID,
		Rating:        5,
		ReviewText:    "The pad thai arrived hot and on time.",
		SelectedItems: []string{"Pad Thai"},
	}
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a verified purchase review", func(t *testing.T) {
		repo := newMockRepositoryManager()
		sink := new(MockActivitySink)
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		repo.reviews.On("Create", ctx, mock.MatchedBy(func(r *orders.Review) bool {
			return r.UserID == userID &&
				r.OrderID == orderID &&
				r.IsVerifiedPurchase &&
				r.Voters != nil && len(r.Voters) == 0
		})).Return(&orders.Review{
			ID:                 uuid.New(),
			UserID:             userID,
			OrderID:            orderID,
			Rating:             5,
			IsVerifiedPurchase: true,
		}, nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt orders.ActivityEvent) bool {
			return evt.EventType == orders.ActivityEventReviewSubmitted &&
				evt.OrderID == orderID.String() &&
				evt.Metadata["rating"] == 5
		})).Return(nil).Once()

		gate := orders.NewReviewGate(repo).WithActivitySink(sink)

		review, err := gate.Submit(ctx, userID, validReviewInput(orderID))
		require.NoError(t, err)
		assert.True(t, review.IsVerifiedPurchase)
		assert.Equal(t, 5, review.Rating)

		repo.orders.AssertExpectations(t)
		repo.reviews.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("Unknown order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).
			Return(nil, orders.ErrOrderNotFound).Once()

		gate := orders.NewReviewGate(repo)

		_, err := gate.Submit(ctx, uuid.New(), validReviewInput(orderID))
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)
		assert.Nil(t, orders.ErrOrderNotFound.Metadata)
		repo.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Order owned by someone else", func(t *testing.T) {
		repo := newMockRepositoryManager()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: uuid.New(),
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		gate := orders.NewReviewGate(repo)

		_, err := gate.Submit(ctx, uuid.New(), validReviewInput(orderID))
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrReviewForbidden)
		repo.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Order not yet delivered", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusOutForDelivery,
		}, nil).Once()

		gate := orders.NewReviewGate(repo)

		_, err := gate.Submit(ctx, userID, validReviewInput(orderID))
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrInvalidOrderState)
		repo.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Ownership is checked before delivery status", func(t *testing.T) {
		repo := newMockRepositoryManager()
		orderID := uuid.New()

		// not the owner AND not delivered: the forbidden error wins
		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: uuid.New(),
			Status: orders.OrderStatusPending,
		}, nil).Once()

		gate := orders.NewReviewGate(repo)

		_, err := gate.Submit(ctx, uuid.New(), validReviewInput(orderID))
		assert.ErrorIs(t, err, orders.ErrReviewForbidden)
	})

	t.Run("Invalid payload", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusDelivered,
		}, nil).Times(3)

		gate := orders.NewReviewGate(repo)

		for _, input := range []orders.ReviewInput{
			{OrderID: orderID, Rating: 0, ReviewText: "rating missing"},
			{OrderID: orderID, Rating: 6, ReviewText: "rating too high"},
			{OrderID: orderID, Rating: 4, ReviewText: ""},
		} {
			_, err := gate.Submit(ctx, userID, input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid review payload")
		}
		repo.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Second review for the same order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", ctx, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		// storage unique constraint on (user_id, order_id) is the real guard
		repo.reviews.On("Create", ctx, mock.Anything).
			Return(nil, orders.ErrDuplicateReview).Once()

		gate := orders.NewReviewGate(repo)

		_, err := gate.Submit(ctx, userID, validReviewInput(orderID))
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrDuplicateReview)
	})
}

func TestListForOrder(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	orderID := uuid.New()

	records := []*orders.Review{
		{ID: uuid.New(), OrderID: orderID},
		{ID: uuid.New(), OrderID: orderID},
	}

	repo.reviews.On("ListByOrder", ctx, orderID).Return(records, nil).Once()

	gate := orders.NewReviewGate(repo)

	result, err := gate.ListForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	repo.reviews.AssertExpectations(t)
}

func TestMarkHelpful(t *testing.T) {
	ctx := context.Background()

	t.Run("Registers the vote", func(t *testing.T) {
		repo := newMockRepositoryManager()
		reviewID := uuid.New()
		voterID := uuid.New().String()

		repo.reviews.On("AddHelpfulVote", ctx, reviewID, voterID).Return(&orders.Review{
			ID:           reviewID,
			HelpfulVotes: 1,
			Voters:       []string{voterID},
		}, nil).Once()

		gate := orders.NewReviewGate(repo)

		review, err := gate.MarkHelpful(ctx, reviewID, voterID)
		require.NoError(t, err)
		assert.Equal(t, 1, review.HelpfulVotes)
		assert.True(t, review.HasVoted(voterID))
		repo.reviews.AssertExpectations(t)
	})

	t.Run("Empty voter id", func(t *testing.T) {
		repo := newMockRepositoryManager()
		gate := orders.NewReviewGate(repo)

		_, err := gate.MarkHelpful(ctx, uuid.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "voter id is required")
		repo.reviews.AssertNotCalled(t, "AddHelpfulVote", mock.Anything, mock.Anything, mock.Anything)
	})
}
