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

func TestSubmitReviewHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Records the review", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", mock.Anything, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		repo.reviews.On("CreateTx", mock.Anything, mock.MatchedBy(func(r *orders.Review) bool {
			return r.UserID == userID && r.OrderID == orderID && r.IsVerifiedPurchase
		})).Return(&orders.Review{ID: uuid.New()}, nil).Once()

		handler := orders.NewSubmitReviewHandler(repo)

		err := handler.Execute(ctx, orders.SubmitReviewMessage{
			UserID:     userID,
			OrderID:    orderID,
			Rating:     5,
			ReviewText: "Arrived hot and fast.",
		})
		require.NoError(t, err)
		repo.orders.AssertExpectations(t)
		repo.reviews.AssertExpectations(t)
	})

	t.Run("Order owned by another user", func(t *testing.T) {
		repo := newMockRepositoryManager()
		orderID := uuid.New()

		repo.orders.On("GetByID", mock.Anything, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: uuid.New(),
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		handler := orders.NewSubmitReviewHandler(repo)

		err := handler.Execute(ctx, orders.SubmitReviewMessage{
			UserID:     uuid.New(),
			OrderID:    orderID,
			Rating:     5,
			ReviewText: "text",
		})
		assert.ErrorIs(t, err, orders.ErrReviewForbidden)
		repo.reviews.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything)
	})

	t.Run("Order not delivered", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", mock.Anything, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusPreparing,
		}, nil).Once()

		handler := orders.NewSubmitReviewHandler(repo)

		err := handler.Execute(ctx, orders.SubmitReviewMessage{
			UserID:     userID,
			OrderID:    orderID,
			Rating:     5,
			ReviewText: "text",
		})
		assert.ErrorIs(t, err, orders.ErrInvalidOrderState)
	})

	t.Run("Duplicate review conflict", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetByID", mock.Anything, orderID.String()).Return(&orders.Order{
			ID:     orderID,
			UserID: userID,
			Status: orders.OrderStatusDelivered,
		}, nil).Once()

		repo.reviews.On("CreateTx", mock.Anything, mock.Anything).
			Return(nil, orders.ErrDuplicateReview).Once()

		handler := orders.NewSubmitReviewHandler(repo)

		err := handler.Execute(ctx, orders.SubmitReviewMessage{
			UserID:     userID,
			OrderID:    orderID,
			Rating:     4,
			ReviewText: "text",
		})
		assert.True(t, orders.IsDuplicateReviewError(err))
	})
}
