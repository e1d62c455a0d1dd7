package wallet

import "errors"

// Domain error kinds. Operations validate before mutating anything, so any
// of these surfacing means no state changed.
var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrWalletExists           = errors.New("wallet already exists")
	ErrWalletInactive         = errors.New("wallet is not active")
	ErrWalletLocked           = errors.New("wallet is locked")
	ErrInsufficientBalance    = errors.New("insufficient wallet balance")
	ErrBelowMinimumWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrSenderUnavailable      = errors.New("sender wallet is not available")
	ErrRecipientInactive      = errors.New("recipient wallet is not active")
	ErrSelfTransfer           = errors.New("cannot transfer to the same wallet")
	ErrForbidden              = errors.New("access denied")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidPin             = errors.New("invalid transaction pin")
	ErrPinNotSet              = errors.New("transaction pin not set")
	ErrNothingToSettle        = errors.New("no pending earnings to settle")

	// ErrConflict signals a concurrent mutation of the same wallet. The
	// engine retries internally; callers only see it once retries are
	// exhausted, wrapped as ErrOperationFailed.
	ErrConflict = errors.New("wallet was modified concurrently")

	ErrOperationFailed = errors.New("operation failed, please retry")
)
