package wallet

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tiffin/models"
	"tiffin/utils"

	"github.com/julienschmidt/httprouter"
)

// Handler adapts the engine and lookup service to HTTP. It owns the mapping
// from domain error kinds to status codes; business code never sees HTTP.
type Handler struct {
	svc    *Service
	lookup *Lookup
}

func NewHandler(svc *Service, lookup *Lookup) *Handler {
	return &Handler{svc: svc, lookup: lookup}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrWalletExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrWalletInactive),
		errors.Is(err, ErrWalletLocked),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrBelowMinimumWithdrawal),
		errors.Is(err, ErrSenderUnavailable),
		errors.Is(err, ErrRecipientInactive),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInvalidPin),
		errors.Is(err, ErrPinNotSet),
		errors.Is(err, ErrNothingToSettle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = ErrOperationFailed.Error()
	}
	utils.RespondWithError(w, code, msg)
}

// RespondError writes a wallet domain error with its mapped status code.
// Collaborating packages use it so the error taxonomy maps to HTTP in
// exactly one place.
func RespondError(w http.ResponseWriter, err error) {
	respondErr(w, err)
}

// requester resolves the authenticated party's wallet reference from the
// JWT claims stashed in the request context.
func requester(r *http.Request) (models.WalletKind, string, bool) {
	kind := models.WalletKind(utils.GetRoleFromRequest(r))
	ownerID := utils.GetUserIDFromRequest(r)
	if !kind.Valid() || ownerID == "" {
		return "", "", false
	}
	return kind, ownerID, true
}

// GetBalance returns the requester's wallet balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	balance, err := h.lookup.GetBalance(r.Context(), kind, ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, balance)
}

// ListTransactions returns the requester's transaction history, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	offset, limit := utils.ParseOffsetLimit(r)
	txns, err := h.lookup.ListTransactions(r.Context(), kind, ownerID, offset, limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"transactions": txns})
}

// GetTransaction returns one transaction if the requester owns it.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	txn, err := h.lookup.GetTransaction(r.Context(), ps.ByName("txnId"), kind, ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, txn)
}

// Reconcile replays the requester's transaction log against the balance.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	report, err := h.lookup.Reconcile(r.Context(), kind, ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

// Fund credits the requester's wallet from an external payment method.
func (h *Handler) Fund(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	var req models.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	txn, err := h.svc.Fund(r.Context(), kind, ownerID, req.Amount, req.Description, req.PaymentMethod)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, txn)
}

// Withdraw opens a pending payout from the requester's wallet.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	txn, err := h.svc.Withdraw(r.Context(), kind, ownerID, req.Amount, req.Description, req.Method, req.AccountDetails)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, txn)
}

// Transfer moves money from the requester's wallet to another wallet. When
// the request carries a transaction PIN it is verified first; transfers
// without a PIN are allowed, matching the funding sources' behavior.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.RecipientKind.Valid() || req.RecipientID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid recipient")
		return
	}

	if req.TransactionPin != "" && kind == models.KindCustomer {
		if err := h.svc.VerifyTransactionPin(r.Context(), ownerID, req.TransactionPin); err != nil {
			respondErr(w, err)
			return
		}
	}

	result, err := h.svc.Transfer(r.Context(), kind, ownerID, req.RecipientKind, req.RecipientID, req.Amount, req.Description)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// SetPin sets the requester's transaction PIN.
func (h *Handler) SetPin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	var req models.SetPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.TransactionPin != req.ConfirmPin {
		utils.RespondWithError(w, http.StatusBadRequest, "pins do not match")
		return
	}

	if err := h.svc.SetTransactionPin(r.Context(), ownerID, req.TransactionPin); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Transaction PIN set successfully"})
}

// SettleEarnings moves the requester's pending earnings into the available
// balance.
func (h *Handler) SettleEarnings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, ownerID, ok := requester(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown wallet owner")
		return
	}

	settled, err := h.svc.SettleEarnings(r.Context(), kind, ownerID)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"balance":            settled.Balance,
		"pending_balance":    settled.PendingBalance,
		"last_settlement_at": settled.LastSettlementAt,
	})
}

// CompleteSettlement is the external processor's callback marking a pending
// withdrawal as paid out.
func (h *Handler) CompleteSettlement(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req struct {
		ProcessorID string     `json:"processor_id"`
		ProcessedAt *time.Time `json:"processed_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProcessorID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	processedAt := time.Now()
	if req.ProcessedAt != nil {
		processedAt = *req.ProcessedAt
	}

	if err := h.svc.MarkSettled(r.Context(), ps.ByName("txnId"), req.ProcessorID, processedAt); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Withdrawal settled"})
}
