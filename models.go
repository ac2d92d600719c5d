package orders

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// OrderStatus is the finite state field that drives the order lifecycle.
type OrderStatus = string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s OrderStatus) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"password_hash,omitempty"`
	IsCompleted    bool       `bun:"is_completed" json:"isCompleted,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Validate checks the user record before persistence.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.Role, validation.Required),
	)
}

// RefreshToken is a persisted long-lived credential. Records are append only;
// revocation happens by deletion. Multiple rows per user are valid by
// construction so concurrent device sessions coexist.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
}

// DeliveryAddress is embedded in orders so a reorder snapshot survives later
// address book edits.
type DeliveryAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zipCode"`
	Phone  string `json:"phone"`
}

// Validate applies address rules; the phone number must parse to a real
// dialable number.
func (a DeliveryAddress) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Street, validation.Required),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.Zip, validation.Required),
		validation.Field(&a.Phone, validation.Required, validation.By(validPhone)),
	)
}

func validPhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return validation.NewError("validation_phone", "must be a valid phone number")
	}
	return nil
}

// NormalizePhone formats a raw phone into E.164 for storage.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", validation.NewError("validation_phone", "must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// OrderItem is one line of an order. Prices are cents so the totals invariant
// reconciles exactly.
type OrderItem struct {
	Name       string `json:"name"`
	Size       string `json:"size,omitempty"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

// Subtotal returns the line total in cents.
func (i OrderItem) Subtotal() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Validate applies the per-line rules.
func (i OrderItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.PriceCents, validation.Min(0)),
		validation.Field(&i.Quantity, validation.Min(1)),
	)
}

// Order is the order model. Status moves only through the OrderStateMachine;
// reorder derives a brand-new record and never mutates the source.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`
	ID            uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID       `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User           `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Address       DeliveryAddress `bun:"address,type:jsonb" json:"address"`
	Items         []OrderItem     `bun:"items,type:jsonb" json:"items"`
	TotalPaid     int64           `bun:"total_paid,notnull" json:"totalPaid"`
	PlatformFee   int64           `bun:"platform_fee" json:"platformFee"`
	DeliveryFee   int64           `bun:"delivery_fee" json:"deliveryFee"`
	Discount      int64           `bun:"discount" json:"discount"`
	Taxes         int64           `bun:"taxes" json:"taxes"`
	PaymentMethod string          `bun:"payment_method" json:"paymentMethod,omitempty"`
	Status        OrderStatus     `bun:"status,notnull" json:"status"`
	CreatedAt     *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value so legacy rows behave like pending.
func (o *Order) EnsureStatus() {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
}

// ItemsSubtotal is the sum of line totals in cents.
func (o *Order) ItemsSubtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// ReconcileTotals enforces the monetary invariant: every component is non
// negative and totalPaid equals subtotal + fees + taxes - discount, exactly.
// Failures return the shared sentinel untouched; attaching per-order fields
// to it would race across requests.
func (o *Order) ReconcileTotals() error {
	if o.TotalPaid < 0 || o.PlatformFee < 0 || o.DeliveryFee < 0 || o.Discount < 0 || o.Taxes < 0 {
		return ErrInvalidOrderTotals
	}

	for _, item := range o.Items {
		if err := item.Validate(); err != nil {
			return ErrInvalidOrderTotals
		}
	}

	expected := o.ItemsSubtotal() + o.PlatformFee + o.DeliveryFee + o.Taxes - o.Discount
	if expected != o.TotalPaid {
		return ErrInvalidOrderTotals
	}

	return nil
}

// Validate checks the order before persistence.
func (o *Order) Validate() error {
	if err := validation.ValidateStruct(o,
		validation.Field(&o.UserID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&o.Items, validation.Required),
		validation.Field(&o.Address),
	); err != nil {
		return err
	}
	return o.ReconcileTotals()
}

func notNilUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return validation.NewError("validation_uuid", "cannot be blank")
	}
	return nil
}

// Review is a verified purchase review. The composite unique constraint on
// (user_id, order_id) is the storage guarantee one review per user per order
// depends on; application checks alone would race.
type Review struct {
	bun.BaseModel      `bun:"table:reviews,alias:rev"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID             uuid.UUID  `bun:"user_id,notnull,type:uuid,unique:reviews_user_order" json:"user,omitempty"`
	OrderID            uuid.UUID  `bun:"order_id,notnull,type:uuid,unique:reviews_user_order" json:"order,omitempty"`
	Rating             int        `bun:"rating,notnull" json:"rating"`
	ReviewText         string     `bun:"review_text,notnull" json:"reviewText"`
	SelectedItems      []string   `bun:"selected_items,type:jsonb" json:"selectedItems,omitempty"`
	IsVerifiedPurchase bool       `bun:"is_verified_purchase" json:"isVerifiedPurchase"`
	HelpfulVotes       int        `bun:"helpful_votes" json:"helpfulVotes"`
	Voters             []string   `bun:"voters,type:jsonb" json:"voters,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate applies the review payload rules.
func (r *Review) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&r.ReviewText, validation.Required),
	)
}

// HasVoted reports whether a user already cast a helpful vote.
func (r *Review) HasVoted(userID string) bool {
	for _, v := range r.Voters {
		if v == userID {
			return true
		}
	}
	return false
}
