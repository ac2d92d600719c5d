package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nikfoods/go-orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validCheckoutInput() orders.CheckoutInput {
	return orders.CheckoutInput{
		Address: orders.DeliveryAddress{
			Street: "1 Curry Lane",
			City:   "Austin",
			Zip:    "78701",
			Phone:  "+14155552671",
		},
		Items: []orders.OrderItem{
			{Name: "Pad Thai", Size: "large", PriceCents: 1200, Quantity: 2},
		},
		PlatformFee: 100,
		DeliveryFee: 300,
		Taxes:       200,
		Discount:    0,
		TotalPaid:   3000,
	}
}

func newTestTokenService() orders.TokenService {
	return orders.NewTokenService([]byte("test-signing-key"), 24, "test-issuer", []string{"test:audience"}, nil)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a pending order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		sink := new(MockActivitySink)
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("Create", ctx, mock.MatchedBy(func(o *orders.Order) bool {
			return o.UserID == userID && o.Status == orders.OrderStatusPending
		})).Return(&orders.Order{
			ID:        orderID,
			UserID:    userID,
			TotalPaid: 3000,
			Items:     validCheckoutInput().Items,
			Status:    orders.OrderStatusPending,
		}, nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt orders.ActivityEvent) bool {
			return evt.EventType == orders.ActivityEventOrderCreated &&
				evt.UserID == userID.String() &&
				evt.OrderID == orderID.String()
		})).Return(nil).Once()

		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService()).WithActivitySink(sink)

		created, err := lifecycle.Checkout(ctx, userID, validCheckoutInput())
		require.NoError(t, err)
		assert.Equal(t, orderID, created.ID)
		assert.Equal(t, orders.OrderStatusPending, created.Status)

		repo.orders.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("Rejects totals that do not reconcile", func(t *testing.T) {
		repo := newMockRepositoryManager()
		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

		input := validCheckoutInput()
		input.TotalPaid = 2999 // one cent short

		_, err := lifecycle.Checkout(ctx, uuid.New(), input)
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrInvalidOrderTotals)
		repo.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Rejects negative monetary fields", func(t *testing.T) {
		repo := newMockRepositoryManager()
		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

		input := validCheckoutInput()
		input.Discount = -500

		_, err := lifecycle.Checkout(ctx, uuid.New(), input)
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrInvalidOrderTotals)
		repo.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Rejects an empty cart", func(t *testing.T) {
		repo := newMockRepositoryManager()
		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

		input := validCheckoutInput()
		input.Items = nil
		input.TotalPaid = 600

		_, err := lifecycle.Checkout(ctx, uuid.New(), input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid checkout payload")
		repo.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestReorder(t *testing.T) {
	ctx := context.Background()

	t.Run("Clones into a new pending order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		sink := new(MockActivitySink)
		userID := uuid.New()
		sourceID := uuid.New()
		newID := uuid.New()

		original := &orders.Order{
			ID:     sourceID,
			UserID: userID,
			Address: orders.DeliveryAddress{
				Street: "1 Curry Lane",
				City:   "Austin",
				Zip:    "78701",
				Phone:  "+14155552671",
			},
			Items: []orders.OrderItem{
				{Name: "Pad Thai", PriceCents: 1200, Quantity: 2},
			},
			PlatformFee: 100,
			DeliveryFee: 300,
			Taxes:       200,
			TotalPaid:   3000,
			Status:      orders.OrderStatusDelivered,
		}

		repo.orders.On("GetOwnedByID", ctx, sourceID, userID).Return(original, nil).Once()
		repo.orders.On("Create", ctx, mock.MatchedBy(func(o *orders.Order) bool {
			// brand new record: pending, same items and fee structure, no repricing
			return o.ID == uuid.Nil &&
				o.Status == orders.OrderStatusPending &&
				o.TotalPaid == original.TotalPaid &&
				len(o.Items) == len(original.Items)
		})).Return(&orders.Order{ID: newID, UserID: userID, Status: orders.OrderStatusPending}, nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt orders.ActivityEvent) bool {
			return evt.EventType == orders.ActivityEventOrderReordered &&
				evt.OrderID == newID.String() &&
				evt.Metadata["source_order_id"] == sourceID.String()
		})).Return(nil).Once()

		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService()).WithActivitySink(sink)

		created, err := lifecycle.Reorder(ctx, userID, sourceID)
		require.NoError(t, err)
		assert.Equal(t, newID, created.ID)
		assert.NotEqual(t, sourceID, created.ID)

		repo.orders.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("Order owned by someone else is not found", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		orderID := uuid.New()

		repo.orders.On("GetOwnedByID", ctx, orderID, userID).
			Return(nil, orders.ErrOrderNotFound).Once()

		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

		_, err := lifecycle.Reorder(ctx, userID, orderID)
		require.Error(t, err)
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)
		repo.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Every call creates a new order", func(t *testing.T) {
		repo := newMockRepositoryManager()
		userID := uuid.New()
		sourceID := uuid.New()

		original := &orders.Order{
			ID:        sourceID,
			UserID:    userID,
			Items:     []orders.OrderItem{{Name: "Pad Thai", PriceCents: 1500, Quantity: 1}},
			TotalPaid: 1500,
			Status:    orders.OrderStatusDelivered,
		}

		repo.orders.On("GetOwnedByID", ctx, sourceID, userID).Return(original, nil).Twice()
		// one expectation per call so each clone gets its own ID
		repo.orders.On("Create", ctx, mock.Anything).
			Return(&orders.Order{ID: uuid.New(), UserID: userID, Status: orders.OrderStatusPending}, nil).Once()
		repo.orders.On("Create", ctx, mock.Anything).
			Return(&orders.Order{ID: uuid.New(), UserID: userID, Status: orders.OrderStatusPending}, nil).Once()

		lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

		first, err := lifecycle.Reorder(ctx, userID, sourceID)
		require.NoError(t, err)
		second, err := lifecycle.Reorder(ctx, userID, sourceID)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		repo.orders.AssertExpectations(t)
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepositoryManager()
	userID := uuid.New()

	records := []*orders.Order{
		{ID: uuid.New(), UserID: userID},
		{ID: uuid.New(), UserID: userID},
	}

	repo.orders.On("ListByUser", ctx, userID).Return(records, nil).Once()

	lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService())

	result, err := lifecycle.ListOrders(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	repo.orders.AssertExpectations(t)
}

func TestCheckoutToken(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	identity := TestIdentity{
		id:        uuid.New().String(),
		email:     "buyer@example.com",
		role:      "customer",
		completed: true,
	}

	repo := newMockRepositoryManager()
	sink := new(MockActivitySink)

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt orders.ActivityEvent) bool {
		return evt.EventType == orders.ActivityEventCheckoutToken &&
			evt.UserID == identity.ID()
	})).Return(nil).Once()

	lifecycle := orders.NewOrderLifecycle(repo, newTestTokenService()).
		WithActivitySink(sink).
		WithClock(func() time.Time { return issuedAt })

	token, expiresAt, err := lifecycle.CheckoutToken(ctx, identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, issuedAt.Add(orders.CheckoutTokenTTL), expiresAt)

	parsed, err := jwt.ParseWithClaims(token, &orders.JWTClaims{}, func(t *jwt.Token) (any, error) {
		return []byte("test-signing-key"), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)

	claims, ok := parsed.Claims.(*orders.JWTClaims)
	require.True(t, ok)
	assert.True(t, claims.HasScope(orders.ScopeCheckout))
	assert.Equal(t, identity.ID(), claims.Subject())
	assert.Equal(t, expiresAt.Unix(), claims.Expires().Unix())

	sink.AssertExpectations(t)
}
