package wallet

import (
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrWalletNotFound, http.StatusNotFound},
		{ErrTransactionNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrWalletExists, http.StatusConflict},
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrSelfTransfer, http.StatusBadRequest},
		{ErrWalletLocked, http.StatusBadRequest},
		{ErrInsufficientBalance, http.StatusBadRequest},
		{ErrBelowMinimumWithdrawal, http.StatusBadRequest},
		{ErrNothingToSettle, http.StatusBadRequest},
		{fmt.Errorf("%w: %s", ErrOperationFailed, ErrConflict), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
