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

func TestCheckoutHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Persists a pending order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()

		repo.orders.On("CreateTx", mock.Anything, mock.MatchedBy(func(o *orders.Order) bool {
			return o.UserID == userID && o.Status == orders.OrderStatusPending
		})).Return(&orders.Order{ID: uuid.New(), UserID: userID}, nil).Once()

		handler := orders.NewCheckoutHandler(repo)

		err := handler.Execute(ctx, orders.CheckoutMessage{
			UserID: userID,
			Input:  validCheckoutInput(),
		})
		require.NoError(t, err)
		repo.orders.AssertExpectations(t)
	})

	t.Run("Totals mismatch never reaches storage", func(t *testing.T) {
		repo := newMockRepositoryManager()

		input := validCheckoutInput()
		input.TotalPaid = 1

		handler := orders.NewCheckoutHandler(repo)

		err := handler.Execute(ctx, orders.CheckoutMessage{
			UserID: uuid.New(),
			Input:  input,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrInvalidOrderTotals)
		repo.orders.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		repo := newMockRepositoryManager()
		handler := orders.NewCheckoutHandler(repo)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, orders.CheckoutMessage{UserID: uuid.New()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context cancelled")
	})
}
