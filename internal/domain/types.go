package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// OrderStatus enumerates lifecycle states shared by orders and order items.
type OrderStatus string

const (
	// OrderStatusPending indicates a made-to-order line (or order) still awaiting production.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusReadyForPickup indicates the line (or order) can be handed over to the customer.
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	// OrderStatusCompleted indicates the line (or order) was picked up. Terminal.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled indicates the line (or order) was cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ChargeStatus enumerates settlement states for an order's charge.
type ChargeStatus string

const (
	// ChargeStatusUnpaid indicates no payment has been applied.
	ChargeStatusUnpaid ChargeStatus = "UNPAID"
	// ChargeStatusPartial indicates payments cover part of the total.
	ChargeStatusPartial ChargeStatus = "PARTIAL"
	// ChargeStatusPaid indicates payments cover the full total.
	ChargeStatusPaid ChargeStatus = "PAID"
)

// StockMovement enumerates manual inventory journal entry directions.
type StockMovement string

const (
	// StockMovementInbound adds produced goods to the shelf.
	StockMovementInbound StockMovement = "INBOUND"
	// StockMovementOutbound removes goods from the shelf outside the order flow.
	StockMovementOutbound StockMovement = "OUTBOUND"
)

// ParseStockMovement validates a raw movement type string.
func ParseStockMovement(raw string) (StockMovement, bool) {
	switch StockMovement(raw) {
	case StockMovementInbound:
		return StockMovementInbound, true
	case StockMovementOutbound:
		return StockMovementOutbound, true
	}
	return "", false
}

// EmployeeRole enumerates access roles for shop staff.
type EmployeeRole string

const (
	// RoleAdmin grants full access including catalog and staff management.
	RoleAdmin EmployeeRole = "ADMIN"
	// RoleAttendant grants order-taking and payment access.
	RoleAttendant EmployeeRole = "ATTENDANT"
)

// Customer identifies a buyer. Phone is stored digits-only.
type Customer struct {
	ID         string
	Name       string
	Phone      string
	IsReseller bool
	Notes      string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Employee identifies a staff member able to take orders and payments.
type Employee struct {
	ID        string
	Name      string
	Login     string
	Role      EmployeeRole
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Flavor is a catalog axis for the product grid.
type Flavor struct {
	ID        string
	Name      string
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Size is the second catalog axis. LargeFormat marks made-to-order sizes that
// never fulfil from shelf stock.
type Size struct {
	ID          string
	Name        string
	LargeFormat bool
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductPrice holds sale and cost prices for a (flavor, size) cell, in centavos.
type ProductPrice struct {
	FlavorID  string
	SizeID    string
	SalePrice int64
	CostPrice int64
	UpdatedAt time.Time
}

// Stock tracks shelf quantities for a (flavor, size) cell. Remaining is the
// reservable count, Total the physically available count; Remaining <= Total
// must hold after every adjustment.
type Stock struct {
	FlavorID  string
	SizeID    string
	Total     int
	Remaining int
	UpdatedAt time.Time
}

// StockRecord journals a manual inventory movement.
type StockRecord struct {
	ID             string
	FlavorID       string
	SizeID         string
	Quantity       int
	MovementType   StockMovement
	ProductionDate time.Time
	ExpirationDate *time.Time
	Deleted        bool
	CreatedAt      time.Time
}

// Order is the aggregate root for a customer purchase.
type Order struct {
	ID               string
	Number           string
	CustomerID       string
	EmployeeID       string
	Status           OrderStatus
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpectedPickupAt time.Time
	PickedUpAt       *time.Time
	Items            []OrderItem
	Charge           *Charge
	Deleted          bool
}

// ItemByID returns the item with the given ID, if present.
func (o *Order) ItemByID(itemID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// ActiveItems returns the items that have not been soft-deleted.
func (o *Order) ActiveItems() []OrderItem {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if !item.Deleted {
			items = append(items, item)
		}
	}
	return items
}

// OrderItem is a single line of an order: a (flavor, size) pair, optionally
// blended with a second flavor, priced per unit in centavos.
type OrderItem struct {
	ID         string
	OrderID    string
	SizeID     string
	Flavor1ID  string
	Flavor2ID  *string
	Quantity   int
	UnitPrice  int64
	TotalPrice int64
	OnDemand   bool
	Status     OrderStatus
	Notes      string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Charge is the single billable total attached 1:1 to an order, in centavos.
type Charge struct {
	OrderID   string
	Subtotal  int64
	Discount  int64
	Total     int64
	Status    ChargeStatus
	Payments  []Payment
	UpdatedAt time.Time
}

// ActivePayments returns the payments that have not been soft-deleted.
func (c *Charge) ActivePayments() []Payment {
	payments := make([]Payment, 0, len(c.Payments))
	for _, p := range c.Payments {
		if !p.Deleted {
			payments = append(payments, p)
		}
	}
	return payments
}

// TotalPaid sums the active payments, in centavos.
func (c *Charge) TotalPaid() int64 {
	var paid int64
	for _, p := range c.Payments {
		if !p.Deleted {
			paid += p.PaidAmount
		}
	}
	return paid
}

// Payment records money received against a charge.
type Payment struct {
	ID            string
	ChargeOrderID string
	EmployeeID    string
	PaidAmount    int64
	PaymentMethod string
	PaidAt        time.Time
	Deleted       bool
	CreatedAt     time.Time
}

// AuditLogEntry stores normalized audit information recorded for every mutation.
type AuditLogEntry struct {
	ID        string
	Actor     string
	Action    string
	TargetRef string
	Metadata  map[string]any
	RequestID string
	CreatedAt time.Time
}
