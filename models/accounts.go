package models

import "time"

// Account is a registered party (customer, vendor or rider). The wallet core
// only consumes its ID and kind; profile data lives here for the thin
// registration/login boundary.
type Account struct {
	ID           string     `bson:"_id" json:"id"`
	Kind         WalletKind `bson:"kind" json:"kind"`
	Username     string     `bson:"username" json:"username"`
	Email        string     `bson:"email" json:"email"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	IsActive     bool       `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
}

// Order is the external collaborator the payment path references. Only the
// fields the settlement flow touches are modeled.
type Order struct {
	ID            string     `bson:"_id" json:"id"`
	CustomerID    string     `bson:"customer_id" json:"customer_id"`
	VendorID      string     `bson:"vendor_id" json:"vendor_id"`
	RiderID       string     `bson:"rider_id,omitempty" json:"rider_id,omitempty"`
	Total         float64    `bson:"total" json:"total"`
	Status        string     `bson:"status" json:"status"` // placed, paid, cancelled, refunded
	PaymentTxnID  string     `bson:"payment_txn_id,omitempty" json:"payment_txn_id,omitempty"`
	PlacedAt      time.Time  `bson:"placed_at" json:"placed_at"`
	PaidAt        *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	RefundedAt    *time.Time `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
}

// Order statuses
const (
	OrderPlaced    = "placed"
	OrderPaid      = "paid"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
	OrderRefunded  = "refunded"
)
