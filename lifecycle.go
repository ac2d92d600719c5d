package orders

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// CheckoutInput is the payload accepted when placing a new order. All money
// amounts are integer cents.
type CheckoutInput struct {
	Address     DeliveryAddress `json:"address"`
	Items       []OrderItem     `json:"items"`
	PlatformFee int64           `json:"platformFee"`
	DeliveryFee int64           `json:"deliveryFee"`
	Taxes       int64           `json:"taxes"`
	Discount    int64           `json:"discount"`
	TotalPaid   int64           `json:"totalPaid"`
}

// OrderLifecycle drives order creation and the workflows that hang off an
// existing order. Status transitions go through OrderStateMachine; this
// service only ever creates new pending orders.
type OrderLifecycle struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	timeProvider func() time.Time
}

// NewOrderLifecycle creates an OrderLifecycle backed by the given repositories.
func NewOrderLifecycle(repo RepositoryManager, tokenService TokenService) *OrderLifecycle {
	return &OrderLifecycle{
		repo:         repo,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		timeProvider: time.Now,
	}
}

func (l *OrderLifecycle) WithLogger(logger Logger) *OrderLifecycle {
	l.logger = logger
	return l
}

func (l *OrderLifecycle) WithActivitySink(sink ActivitySink) *OrderLifecycle {
	l.activitySink = normalizeActivitySink(sink)
	return l
}

// WithClock overrides the time source, mostly for tests.
func (l *OrderLifecycle) WithClock(clock func() time.Time) *OrderLifecycle {
	if clock != nil {
		l.timeProvider = clock
	}
	return l
}

// Checkout validates the payload and persists a new pending order for the
// user. Totals reconciliation is a hard precondition: a payload whose
// totalPaid does not equal subtotal + fees + taxes - discount never reaches
// storage.
func (l *OrderLifecycle) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*Order, error) {
	order := &Order{
		UserID:      userID,
		Address:     input.Address,
		Items:       input.Items,
		PlatformFee: input.PlatformFee,
		DeliveryFee: input.DeliveryFee,
		Taxes:       input.Taxes,
		Discount:    input.Discount,
		TotalPaid:   input.TotalPaid,
		Status:      OrderStatusPending,
	}

	// Totals run first and surface their own sentinel; wrapping them under a
	// generic payload error would hide the kind from callers matching on it.
	if err := order.ReconcileTotals(); err != nil {
		return nil, err
	}

	if err := order.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid checkout payload").
			WithTextCode("INVALID_CHECKOUT")
	}

	created, err := l.repo.Orders().Create(ctx, order)
	if err != nil {
		l.logger.Error("Checkout create order error", "error", err)
		return nil, errors.Wrap(err, ErrPersistence.Category, ErrPersistence.Message).
			WithTextCode(ErrPersistence.TextCode)
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventOrderCreated,
		Actor:     ActorRef{ID: userID.String(), Type: "user"},
		UserID:    userID.String(),
		OrderID:   created.ID.String(),
		Metadata: map[string]any{
			"total_paid": created.TotalPaid,
			"items":      len(created.Items),
		},
	})

	return created, nil
}

// Reorder clones a previous order of the same user into a brand new pending
// order. The clone copies address, items, and fee structure as they were; it
// does not reprice. Reorder is not idempotent: every call creates a new order.
//
// Lookup failures and ownership failures are indistinguishable to the caller.
// Both come back as ErrOrderNotFound so the endpoint cannot be used to probe
// for other users' order IDs.
func (l *OrderLifecycle) Reorder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	original, err := l.repo.Orders().GetOwnedByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	clone := &Order{
		UserID:      userID,
		Address:     original.Address,
		Items:       cloneOrderItems(original.Items),
		PlatformFee: original.PlatformFee,
		DeliveryFee: original.DeliveryFee,
		Taxes:       original.Taxes,
		Discount:    original.Discount,
		TotalPaid:   original.TotalPaid,
		Status:      OrderStatusPending,
	}

	created, err := l.repo.Orders().Create(ctx, clone)
	if err != nil {
		l.logger.Error("Reorder create order error", "error", err)
		return nil, errors.Wrap(err, ErrPersistence.Category, ErrPersistence.Message).
			WithTextCode(ErrPersistence.TextCode)
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventOrderReordered,
		Actor:     ActorRef{ID: userID.String(), Type: "user"},
		UserID:    userID.String(),
		OrderID:   created.ID.String(),
		Metadata: map[string]any{
			"source_order_id": original.ID.String(),
		},
	})

	return created, nil
}

// ListOrders returns the user's orders, newest first.
func (l *OrderLifecycle) ListOrders(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return l.repo.Orders().ListByUser(ctx, userID)
}

// GetOrder fetches a single order scoped to its owner.
func (l *OrderLifecycle) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	return l.repo.Orders().GetOwnedByID(ctx, orderID, userID)
}

// CheckoutToken mints a short lived checkout scoped token for the identity.
// The second return value is the token expiry.
func (l *OrderLifecycle) CheckoutToken(ctx context.Context, identity Identity) (string, time.Time, error) {
	token, expiresAt, err := MintCheckoutToken(l.tokenService, identity, l.timeProvider())
	if err != nil {
		l.logger.Error("CheckoutToken mint error", "error", err)
		return "", time.Time{}, err
	}

	l.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventCheckoutToken,
		Actor:     ActorRef{ID: identity.ID(), Type: "user"},
		UserID:    identity.ID(),
		Metadata: map[string]any{
			"expires_at": expiresAt,
		},
	})

	return token, expiresAt, nil
}

func (l *OrderLifecycle) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.timeProvider()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := l.activitySink.Record(ctx, event); err != nil {
		l.logger.Warn("activity sink record error: %v", err)
	}
}

func cloneOrderItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}
