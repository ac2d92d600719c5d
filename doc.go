// Package orders provides the trust and workflow core for a food ordering
// platform: credential verification, JWT session issuance, and the order
// lifecycle with its review gate.
//
// Order lifecycle:
//   - Orders carry an OrderStatus field that is persisted via Bun. Statuses
//     move pending -> confirmed -> preparing -> out_for_delivery -> delivered,
//     with cancellation allowed from any non-terminal state.
//   - OrderStateMachine centralizes the transition graph, hooks, and
//     persistence. Status writes are compare-and-set on the current status so
//     two concurrent transitions cannot both win.
//
// Review gate:
//   - ReviewGate orders its preconditions deterministically: order existence,
//     then ownership, then delivered status, then payload validation. The
//     one-review-per-user-per-order rule is enforced by a storage unique
//     constraint, so concurrent duplicate submissions resolve to one success.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     lifecycle service, and the state machine to describe login, checkout,
//     reorder, review, and transition events. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     the request.
package orders
