package domain

import "time"

// Event captures a domain change produced by a mutating operation. Services
// return the events they generated alongside their results; a consumer wired
// at the edge persists audit entries and publishes them downstream. There is
// no global listener registry.
type Event struct {
	Type       string
	TargetRef  string
	Actor      string
	OccurredAt time.Time
	Data       map[string]any
}

// Event types emitted by the engine.
const (
	EventOrderCreated      = "order.created"
	EventOrderUpdated      = "order.updated"
	EventOrderCompleted    = "order.completed"
	EventOrderCancelled    = "order.cancelled"
	EventOrderItemAdded    = "order.item.added"
	EventOrderItemUpdated  = "order.item.updated"
	EventOrderItemRemoved  = "order.item.removed"
	EventPaymentRecorded   = "payment.recorded"
	EventPaymentUpdated    = "payment.updated"
	EventPaymentRemoved    = "payment.removed"
	EventStockMovement     = "stock.movement"
	EventStockAdjusted     = "stock.adjusted"
	EventCatalogChanged    = "catalog.changed"
	EventCustomerChanged   = "customer.changed"
	EventEmployeeChanged   = "employee.changed"
)
