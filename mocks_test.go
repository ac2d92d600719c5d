package orders_test

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nikfoods/go-orders"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockConfig implements orders.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetCheckoutTokenTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// MockIdentityProvider implements orders.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (orders.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(orders.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (orders.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(orders.Identity), args.Error(1)
}

// MockActivitySink implements orders.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event orders.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUserTracker implements orders.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*orders.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *orders.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *orders.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockOrders mocks the orders repository accessors our services call. The
// embedded interface covers the rest of the repository surface; anything
// not explicitly implemented here panics, which is exactly what we want in
// a test that touches an unexpected method.
type MockOrders struct {
	mock.Mock
	orders.Orders
}

func (m *MockOrders) Create(ctx context.Context, record *orders.Order, criteria ...repository.InsertCriteria) (*orders.Order, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrders) CreateTx(ctx context.Context, tx bun.IDB, record *orders.Order, criteria ...repository.InsertCriteria) (*orders.Order, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrders) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*orders.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrders) GetOwnedByID(ctx context.Context, id, userID uuid.UUID) (*orders.Order, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrders) ListByUser(ctx context.Context, userID uuid.UUID) ([]*orders.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*orders.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to orders.OrderStatus) (*orders.Order, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to orders.OrderStatus) (*orders.Order, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

// MockReviews mocks the reviews repository accessors.
type MockReviews struct {
	mock.Mock
	orders.Reviews
}

func (m *MockReviews) Create(ctx context.Context, record *orders.Review, criteria ...repository.InsertCriteria) (*orders.Review, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Review), args.Error(1)
}

func (m *MockReviews) CreateTx(ctx context.Context, tx bun.IDB, record *orders.Review, criteria ...repository.InsertCriteria) (*orders.Review, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Review), args.Error(1)
}

func (m *MockReviews) GetByUserAndOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.Review, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Review), args.Error(1)
}

func (m *MockReviews) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*orders.Review, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*orders.Review), args.Error(1)
}

func (m *MockReviews) AddHelpfulVote(ctx context.Context, reviewID uuid.UUID, voterID string) (*orders.Review, error) {
	args := m.Called(ctx, reviewID, voterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Review), args.Error(1)
}

// MockUsers mocks the users repository accessors the command handlers use.
type MockUsers struct {
	mock.Mock
	orders.Users
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*orders.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.User), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *orders.User, criteria ...repository.InsertCriteria) (*orders.User, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.User), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *orders.User, criteria ...repository.InsertCriteria) (*orders.User, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.User), args.Error(1)
}

// MockRefreshTokens mocks the refresh token store.
type MockRefreshTokens struct {
	mock.Mock
	orders.RefreshTokens
}

func (m *MockRefreshTokens) Create(ctx context.Context, record *orders.RefreshToken, criteria ...repository.InsertCriteria) (*orders.RefreshToken, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokens) GetByToken(ctx context.Context, token string) (*orders.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockRepositoryManager hands the mocked repositories to the services under
// test. RunInTx executes the callback in place with a zero transaction; the
// mocks underneath never touch the handle.
type MockRepositoryManager struct {
	users         *MockUsers
	orders        *MockOrders
	reviews       *MockReviews
	refreshTokens *MockRefreshTokens
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:         &MockUsers{},
		orders:        &MockOrders{},
		reviews:       &MockReviews{},
		refreshTokens: &MockRefreshTokens{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() orders.Users                 { return m.users }
func (m *MockRepositoryManager) Orders() orders.Orders               { return m.orders }
func (m *MockRepositoryManager) Reviews() orders.Reviews             { return m.reviews }
func (m *MockRepositoryManager) RefreshTokens() orders.RefreshTokens { return m.refreshTokens }
