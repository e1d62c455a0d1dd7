package models

import (
	"time"
)

// WalletKind identifies which party owns a wallet.
type WalletKind string

const (
	KindCustomer WalletKind = "customer"
	KindVendor   WalletKind = "vendor"
	KindRider    WalletKind = "rider"
)

// Valid reports whether k is one of the three known wallet kinds.
func (k WalletKind) Valid() bool {
	switch k {
	case KindCustomer, KindVendor, KindRider:
		return true
	}
	return false
}

// Transaction types
const (
	TxnDeposit    = "deposit"
	TxnWithdrawal = "withdrawal"
	TxnPayment    = "payment"
	TxnRefund     = "refund"
	TxnTransfer   = "transfer"
	TxnCommission = "commission"
	TxnBonus      = "bonus"
)

// Transaction statuses
const (
	TxnPending   = "pending"
	TxnCompleted = "completed"
	TxnFailed    = "failed"
	TxnCancelled = "cancelled"
	TxnRefunded  = "refunded"
)

// Wallet is a single-balance account owned by exactly one customer, vendor
// or rider. One wallet per (kind, owner) pair, enforced by a unique index.
type Wallet struct {
	ID      string     `bson:"_id" json:"id"`
	Kind    WalletKind `bson:"kind" json:"kind"`
	OwnerID string     `bson:"owner_id" json:"owner_id"`

	Balance        float64 `bson:"balance" json:"balance"`
	PendingBalance float64 `bson:"pending_balance" json:"pending_balance"` // vendor/rider earnings not yet settled

	IsActive bool `bson:"is_active" json:"is_active"`
	IsLocked bool `bson:"is_locked" json:"is_locked"`

	// Policy parameters. Which ones apply depends on the kind.
	CommissionRate    float64 `bson:"commission_rate,omitempty" json:"commission_rate,omitempty"`       // vendor
	DeliveryRate      float64 `bson:"delivery_rate,omitempty" json:"delivery_rate,omitempty"`           // rider
	MinimumWithdrawal float64 `bson:"minimum_withdrawal,omitempty" json:"minimum_withdrawal,omitempty"` // vendor/rider
	DailyLimit        float64 `bson:"daily_limit,omitempty" json:"daily_limit,omitempty"`               // customer

	// bcrypt hash, customer only. Never serialized to clients.
	TransactionPin string `bson:"transaction_pin,omitempty" json:"-"`

	LastTransactionAt *time.Time `bson:"last_transaction_at,omitempty" json:"last_transaction_at,omitempty"`
	LastSettlementAt  *time.Time `bson:"last_settlement_at,omitempty" json:"last_settlement_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

// WalletTransaction is an immutable record of one balance-affecting event.
// Amount is signed for transfers (negative on the debit side) and an unsigned
// magnitude for every other type, direction implied by the type.
type WalletTransaction struct {
	ID         string     `bson:"_id" json:"id"`
	WalletID   string     `bson:"wallet_id" json:"wallet_id"`
	WalletKind WalletKind `bson:"wallet_kind" json:"wallet_kind"`

	Type   string `bson:"type" json:"type"`
	Status string `bson:"status" json:"status"`

	Amount        float64 `bson:"amount" json:"amount"`
	BalanceBefore float64 `bson:"balance_before" json:"balance_before"`
	BalanceAfter  float64 `bson:"balance_after" json:"balance_after"`

	Description   string `bson:"description" json:"description"`
	ReferenceID   string `bson:"reference_id,omitempty" json:"reference_id,omitempty"`
	ReferenceType string `bson:"reference_type,omitempty" json:"reference_type,omitempty"`

	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	ProcessorID string     `bson:"processor_id,omitempty" json:"processor_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AppliedDelta returns the signed effect this transaction has had on its
// wallet's available balance. Withdrawals debit immediately even while the
// external payout is still pending; earnings (commission/bonus) only count
// once settlement completes them.
func (t *WalletTransaction) AppliedDelta() float64 {
	switch t.Type {
	case TxnDeposit, TxnRefund:
		return t.Amount
	case TxnWithdrawal, TxnPayment:
		return -t.Amount
	case TxnTransfer:
		return t.Amount
	case TxnCommission, TxnBonus:
		if t.Status == TxnCompleted {
			return t.Amount
		}
		return 0
	}
	return 0
}

// WalletBalance is the lookup-service view of a wallet.
type WalletBalance struct {
	Kind              WalletKind `json:"kind"`
	OwnerID           string     `json:"owner_id"`
	Balance           float64    `json:"balance"`
	PendingBalance    float64    `json:"pending_balance"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
}

// ===== Request payloads =====

type FundRequest struct {
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	PaymentMethod string  `json:"payment_method"`
}

type WithdrawRequest struct {
	Amount         float64           `json:"amount"`
	Description    string            `json:"description"`
	Method         string            `json:"method"`
	AccountDetails map[string]string `json:"account_details"`
}

type TransferRequest struct {
	RecipientKind  WalletKind `json:"recipient_kind"`
	RecipientID    string     `json:"recipient_id"`
	Amount         float64    `json:"amount"`
	Description    string     `json:"description"`
	TransactionPin string     `json:"transaction_pin,omitempty"`
}

type SetPinRequest struct {
	TransactionPin string `json:"transaction_pin"`
	ConfirmPin     string `json:"confirm_pin"`
}

// IdempotencyRecord backs the Idempotency-Key replay middleware.
type IdempotencyRecord struct {
	Key         string                 `bson:"key" json:"key"`
	Method      string                 `bson:"method" json:"method"`
	Path        string                 `bson:"path" json:"path"`
	UserID      string                 `bson:"userid" json:"userid"`
	RequestHash string                 `bson:"request_hash" json:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at" json:"expires_at"`
}
