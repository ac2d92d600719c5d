package orders

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Middleware is the surface the route registration needs from the HTTP
// authenticator.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
}

// GetRouterSession pulls the verified session out of request locals, where
// the JWT middleware stored the parsed token.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	user, ok := cookie.(*jwt.Token)
	if user == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromClaims(claims)
}

// RegisterOrderRoutes wires the controller onto the router. Auth endpoints
// are public; everything under /orders and /reviews goes through the JWT
// middleware.
func RegisterOrderRoutes[T any](app router.Router[T], opts ...OrderControllerOption) {
	controller := NewOrderController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Post("/auth/login", controller.Login).SetName("auth.login")
	app.Post("/auth/refresh", controller.Refresh).SetName("auth.refresh")
	app.Post("/auth/logout", controller.Logout).SetName("auth.logout")
	app.Post("/auth/register", controller.Register).SetName("auth.register")

	app.Get("/orders", controller.ListOrders, protected).SetName("orders.list")
	app.Post("/orders/checkout-token", controller.CheckoutToken, protected).SetName("orders.checkout-token")
	app.Get("/orders/:id", controller.GetOrder, protected).SetName("orders.get")
	app.Post("/orders/checkout", controller.Checkout, protected).SetName("orders.checkout")
	app.Post("/orders/:id/reorder", controller.Reorder, protected).SetName("orders.reorder")
	app.Patch("/orders/:id/status", controller.UpdateOrderStatus, protected).SetName("orders.status")
	app.Get("/orders/:id/reviews", controller.ListOrderReviews, protected).SetName("orders.reviews")

	app.Post("/reviews", controller.SubmitReview, protected).SetName("reviews.submit")
	app.Post("/reviews/:id/helpful", controller.MarkReviewHelpful, protected).SetName("reviews.helpful")
}

type OrderController struct {
	Debug        bool
	Logger       Logger
	Config       Config
	Repo         RepositoryManager
	Auth         Authenticator
	Auther       Middleware
	Lifecycle    *OrderLifecycle
	Gate         *ReviewGate
	StateMachine OrderStateMachine
	ErrorHandler func(router.Context, error) error
}

type OrderControllerOption func(*OrderController) *OrderController

func WithControllerLogger(logger Logger) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Debug = debug
		return c
	}
}

func WithControllerConfig(cfg Config) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Config = cfg
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuth(auth Authenticator) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Auth = auth
		return c
	}
}

func WithControllerMiddleware(m Middleware) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Auther = m
		return c
	}
}

func WithControllerLifecycle(l *OrderLifecycle) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Lifecycle = l
		return c
	}
}

func WithControllerReviewGate(g *ReviewGate) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.Gate = g
		return c
	}
}

func WithControllerStateMachine(sm OrderStateMachine) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.StateMachine = sm
		return c
	}
}

func WithControllerErrorHandler(h func(router.Context, error) error) OrderControllerOption {
	return func(c *OrderController) *OrderController {
		c.ErrorHandler = h
		return c
	}
}

func NewOrderController(opts ...OrderControllerOption) *OrderController {
	c := &OrderController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in order controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in order controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTP middleware in order controller...")
	}

	if c.Config == nil {
		panic("Missing Config in order controller...")
	}

	if c.Lifecycle == nil {
		panic("Missing OrderLifecycle in order controller...")
	}

	if c.Gate == nil {
		panic("Missing ReviewGate in order controller...")
	}

	if c.StateMachine == nil {
		panic("Missing OrderStateMachine in order controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = defaultJSONErrHandler
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *OrderController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload"))
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	pair, err := a.Auth.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		a.Logger.Error("login error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *OrderController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse refresh payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid refresh payload"))
	}

	pair, err := a.Auth.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		a.Logger.Error("refresh error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

func (a *OrderController) Logout(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse logout payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid logout payload"))
	}

	if err := a.Auth.Logout(ctx.Context(), payload.RefreshToken); err != nil {
		a.Logger.Error("logout error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Logged out",
	})
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 11), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *OrderController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse registration payload"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload"))
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerUser := RegisterUserHandler{repo: a.Repo}
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register execute error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "User registered",
	})
}

func (a *OrderController) Checkout(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(CheckoutInput)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("checkout parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse checkout payload"))
	}

	order, err := a.Lifecycle.Checkout(ctx.Context(), userID, *payload)
	if err != nil {
		a.Logger.Error("checkout error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Order placed successfully",
		"data": router.ViewContext{
			"id":  order.ID.String(),
			"_id": order.ID.String(),
		},
	})
}

func (a *OrderController) Reorder(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		// Unparseable IDs get the same answer as unknown ones
		return ctx.JSON(http.StatusNotFound, router.ViewContext{
			"success": false,
			"error":   "Original order not found",
		})
	}

	order, err := a.Lifecycle.Reorder(ctx.Context(), userID, orderID)
	if err != nil {
		if goerrors.Is(err, ErrOrderNotFound) {
			return ctx.JSON(http.StatusNotFound, router.ViewContext{
				"success": false,
				"error":   "Original order not found",
			})
		}
		a.Logger.Error("reorder error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Reorder placed successfully",
		"data": router.ViewContext{
			"id":  order.ID.String(),
			"_id": order.ID.String(),
		},
	})
}

// CheckoutToken issues a short lived payment scoped token for the session
// user. The expiresIn field is seconds.
func (a *OrderController) CheckoutToken(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	identity, err := a.Auth.IdentityFromSession(ctx.Context(), session)
	if err != nil {
		a.Logger.Error("checkout token identity error", "error", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{
			"error": "Failed to generate token",
		})
	}

	token, expiresAt, err := a.Lifecycle.CheckoutToken(ctx.Context(), identity)
	if err != nil {
		a.Logger.Error("checkout token mint error", "error", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{
			"error": "Failed to generate token",
		})
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"token":     token,
		"expiresIn": int(CheckoutTokenTTL.Seconds()),
		"expiresAt": expiresAt,
	})
}

func (a *OrderController) ListOrders(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	records, err := a.Lifecycle.ListOrders(ctx.Context(), userID)
	if err != nil {
		a.Logger.Error("list orders error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"data":    records,
	})
}

func (a *OrderController) GetOrder(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrOrderNotFound)
	}

	order, err := a.Lifecycle.GetOrder(ctx.Context(), userID, orderID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatusRequest is the payload for status transitions.
type UpdateOrderStatusRequest struct {
	Status string `form:"status" json:"status"`
	Reason string `form:"reason" json:"reason"`
}

func (r UpdateOrderStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
	)
}

// UpdateOrderStatus transitions the order through the state machine. Only
// admins may move orders; customers track their orders read-only.
func (a *OrderController) UpdateOrderStatus(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if session.GetRole() != string(RoleAdmin) {
		return a.ErrorHandler(ctx, goerrors.New("only admins can update order status", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden))
	}

	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrOrderNotFound)
	}

	payload := new(UpdateOrderStatusRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse status payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid status payload"))
	}

	order, err := a.Repo.Orders().GetByID(ctx.Context(), orderID.String())
	if err != nil {
		return a.ErrorHandler(ctx, ErrOrderNotFound)
	}

	opts := []TransitionOption{}
	if payload.Reason != "" {
		opts = append(opts, WithTransitionReason(payload.Reason))
	}

	actor := ActorRef{ID: session.GetUserID(), Type: "admin"}
	order, err = a.StateMachine.Transition(ctx.Context(), actor, order, OrderStatus(payload.Status), opts...)
	if err != nil {
		a.Logger.Error("order transition error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Order status updated",
		"data": router.ViewContext{
			"id":     order.ID.String(),
			"status": order.Status,
		},
	})
}

// ReviewRequest is the payload for review submission.
type ReviewRequest struct {
	OrderID       string   `form:"orderId" json:"orderId"`
	Rating        int      `form:"rating" json:"rating"`
	ReviewText    string   `form:"reviewText" json:"reviewText"`
	SelectedItems []string `form:"selectedItems" json:"selectedItems"`
}

func (r ReviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required, is.UUIDv4),
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&r.ReviewText, validation.Required),
	)
}

func (a *OrderController) SubmitReview(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ReviewRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse review payload"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid review payload"))
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("orderId is not a valid UUID", goerrors.CategoryBadInput))
	}

	if _, err := a.Gate.Submit(ctx.Context(), userID, ReviewInput{
		OrderID:       orderID,
		Rating:        payload.Rating,
		ReviewText:    payload.ReviewText,
		SelectedItems: payload.SelectedItems,
	}); err != nil {
		a.Logger.Error("submit review error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Review submitted successfully",
	})
}

func (a *OrderController) ListOrderReviews(ctx router.Context) error {
	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrOrderNotFound)
	}

	records, err := a.Gate.ListForOrder(ctx.Context(), orderID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"data":    records,
	})
}

func (a *OrderController) MarkReviewHelpful(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	reviewID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("review id is not a valid UUID", goerrors.CategoryBadInput))
	}

	record, err := a.Gate.MarkHelpful(ctx.Context(), reviewID, session.GetUserID())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"data": router.ViewContext{
			"id":           record.ID.String(),
			"helpfulVotes": record.HelpfulVotes,
		},
	})
}

func (a *OrderController) sessionUserID(ctx router.Context) (uuid.UUID, error) {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return uuid.Nil, ErrUnableToDecodeSession
	}

	return userID, nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}

func defaultJSONErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusFromError(richErr)
	body := router.ViewContext{
		"success": false,
		"error":   richErr.Message,
	}

	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.JSON(status, body)
}
