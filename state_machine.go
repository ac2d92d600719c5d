package orders

import (
	"context"
	"fmt"
	"time"
)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor ActorRef
	Order *Order
	From  OrderStatus
	To    OrderStatus
	Meta  TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionHookPhase identifies whether a hook ran before or after persistence.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// TransitionOption customizes state machine behavior.
type TransitionOption func(*transitionOptions)

// OrderStateMachine defines lifecycle operations for orders.
type OrderStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, order *Order, target OrderStatus, opts ...TransitionOption) (*Order, error)
	CurrentStatus(order *Order) OrderStatus
}

// HookErrorHandler handles errors surfaced by transition hooks.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*orderStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *orderStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *orderStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineHookErrorHandler overrides how hook failures are propagated.
// Provide a handler to convert hook errors into domain-specific responses,
// otherwise the default handler panics with guidance for developers.
func WithStateMachineHookErrorHandler(handler HookErrorHandler) StateMachineOption {
	return func(sm *orderStateMachine) {
		if handler != nil {
			sm.hookErrorHandler = handler
		}
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *orderStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewOrderStateMachine returns the default implementation backed by the provided repository.
// Transitions are one way: pending moves toward delivered, and cancelled is
// reachable from every non-terminal state.
func NewOrderStateMachine(orders Orders, opts ...StateMachineOption) OrderStateMachine {
	sm := &orderStateMachine{
		orders: orders,
		transitions: map[OrderStatus]map[OrderStatus]struct{}{
			OrderStatusPending: {
				OrderStatusConfirmed: {},
				OrderStatusCancelled: {},
			},
			OrderStatusConfirmed: {
				OrderStatusPreparing: {},
				OrderStatusCancelled: {},
			},
			OrderStatusPreparing: {
				OrderStatusOutForDelivery: {},
				OrderStatusCancelled:      {},
			},
			OrderStatusOutForDelivery: {
				OrderStatusDelivered: {},
				OrderStatusCancelled: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		hookErrorHandler: func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
			return defaultHookErrorHandler(ctx, phase, err, tc)
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type orderStateMachine struct {
	orders           Orders
	transitions      map[OrderStatus]map[OrderStatus]struct{}
	now              func() time.Time
	activitySink     ActivitySink
	logger           Logger
	hookErrorHandler HookErrorHandler
}

type transitionOptions struct {
	metadata    TransitionMetadata
	force       bool
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *orderStateMachine) Transition(ctx context.Context, actor ActorRef, order *Order, target OrderStatus, opts ...TransitionOption) (*Order, error) {
	if order == nil {
		return nil, ErrInvalidTransition
	}

	order.EnsureStatus()
	from := order.Status
	if target == "" {
		return nil, ErrInvalidTransition
	}

	if from == target {
		return order, nil
	}

	options := sm.buildTransitionOptions(opts...)

	if IsTerminalStatus(from) && !options.force {
		sm.logger.Info("Transition refused, terminal state", "from", from, "to", target)
		return nil, ErrTerminalState
	}

	if !options.force && !sm.canTransition(from, target) {
		sm.logger.Info("Transition refused, not allowed", "from", from, "to", target)
		return nil, ErrInvalidTransition
	}

	ctxData := TransitionContext{
		Actor: actor,
		Order: order,
		From:  from,
		To:    target,
		Meta:  options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, ctxData, HookPhaseBefore); err != nil {
		return nil, err
	}

	updated, err := sm.orders.UpdateStatus(ctx, order.ID, from, target)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(order, updated, target)

	if err := sm.runHooks(ctx, options.afterHooks, ctxData, HookPhaseAfter); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventOrderStatusChanged,
		Actor:      actor,
		UserID:     order.UserID.String(),
		OrderID:    order.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(ctxData.Meta),
	})

	return order, nil
}

func (sm *orderStateMachine) CurrentStatus(order *Order) OrderStatus {
	if order == nil {
		return ""
	}
	order.EnsureStatus()
	return order.Status
}

func (sm *orderStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext, phase TransitionHookPhase) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			if sm.hookErrorHandler == nil {
				return err
			}
			return sm.hookErrorHandler(ctx, phase, err, data)
		}
	}
	return nil
}

func (sm *orderStateMachine) canTransition(from, to OrderStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *orderStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func defaultHookErrorHandler(_ context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
	panic(fmt.Sprintf(
		"go-orders: %s transition hook failed: %v\nOrderID: %s from=%s to=%s reason=%s\nProvide orders.WithStateMachineHookErrorHandler to customize error handling in production.",
		phase,
		err,
		tc.Order.ID,
		tc.From,
		tc.To,
		tc.Meta.Reason,
	))
}

func (sm *orderStateMachine) applyUpdates(order, updated *Order, target OrderStatus) {
	if updated != nil && updated.Status != "" {
		order.Status = updated.Status
		order.UpdatedAt = updated.UpdatedAt
		return
	}
	order.Status = target
}

func (sm *orderStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (sm *orderStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
