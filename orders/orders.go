package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"tiffin/db"
	"tiffin/models"
	"tiffin/utils"
	"tiffin/wallet"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler drives the order lifecycle and hands the money movements to the
// wallet engine: payment on checkout, refund on cancellation, earnings on
// completion.
type Handler struct {
	wallets *wallet.Service
}

func NewHandler(wallets *wallet.Service) *Handler {
	return &Handler{wallets: wallets}
}

func requesterID(r *http.Request) (models.WalletKind, string) {
	return models.WalletKind(utils.GetRoleFromRequest(r)), utils.GetUserIDFromRequest(r)
}

func loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := db.OrdersCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

type placeOrderRequest struct {
	VendorID string  `json:"vendor_id"`
	RiderID  string  `json:"rider_id,omitempty"`
	Total    float64 `json:"total"`
}

// PlaceOrder records a new order for the authenticated customer. No money
// moves until the order is paid.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, customerID := requesterID(r)
	if kind != models.KindCustomer || customerID == "" {
		utils.RespondWithError(w, http.StatusForbidden, "only customers can place orders")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.VendorID == "" || req.Total <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "vendor_id and a positive total are required")
		return
	}

	ctx := r.Context()
	if !db.AccountExists(ctx, req.VendorID, models.KindVendor) {
		utils.RespondWithError(w, http.StatusNotFound, "vendor not found")
		return
	}

	order := models.Order{
		ID:         utils.GetUUID(),
		CustomerID: customerID,
		VendorID:   req.VendorID,
		RiderID:    req.RiderID,
		Total:      req.Total,
		Status:     models.OrderPlaced,
		PlacedAt:   time.Now(),
	}
	if _, err := db.OrdersCollection.InsertOne(ctx, order); err != nil {
		log.Printf("order insert failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, order)
}

// GetOrder returns an order to any of its parties.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, requester := requesterID(r)

	order, err := loadOrder(r.Context(), ps.ByName("orderId"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if requester != order.CustomerID && requester != order.VendorID && requester != order.RiderID {
		utils.RespondWithError(w, http.StatusForbidden, "not a party to this order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// PayOrder settles a placed order from the customer's wallet.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, customerID := requesterID(r)
	if kind != models.KindCustomer || customerID == "" {
		utils.RespondWithError(w, http.StatusForbidden, "only customers can pay for orders")
		return
	}

	ctx := r.Context()
	order, err := loadOrder(ctx, ps.ByName("orderId"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.CustomerID != customerID {
		utils.RespondWithError(w, http.StatusForbidden, "not your order")
		return
	}
	if order.Status != models.OrderPlaced {
		utils.RespondWithError(w, http.StatusConflict, "order is not awaiting payment")
		return
	}

	txn, err := h.wallets.PayForOrder(ctx, order.ID, customerID, order.Total)
	if err != nil {
		wallet.RespondError(w, err)
		return
	}

	now := time.Now()
	if _, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"_id": order.ID, "status": models.OrderPlaced},
		bson.M{"$set": bson.M{
			"status":         models.OrderPaid,
			"payment_txn_id": txn.ID,
			"paid_at":        now,
		}},
	); err != nil {
		// The wallet debit already went through; the stale status will
		// show up in reconciliation.
		log.Printf("order %s paid but status update failed: %v", order.ID, err)
	}

	order.Status = models.OrderPaid
	order.PaymentTxnID = txn.ID
	order.PaidAt = &now
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"order": order, "transaction": txn})
}

// CompleteOrder marks a paid order delivered and credits the vendor's and
// rider's pending earnings.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, vendorID := requesterID(r)
	if kind != models.KindVendor || vendorID == "" {
		utils.RespondWithError(w, http.StatusForbidden, "only vendors can complete orders")
		return
	}

	ctx := r.Context()
	order, err := loadOrder(ctx, ps.ByName("orderId"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.VendorID != vendorID {
		utils.RespondWithError(w, http.StatusForbidden, "not your order")
		return
	}
	if order.Status != models.OrderPaid {
		utils.RespondWithError(w, http.StatusConflict, "order is not paid")
		return
	}

	if _, err := h.wallets.CreditEarnings(ctx, models.KindVendor, vendorID, order.Total, order.ID); err != nil {
		wallet.RespondError(w, err)
		return
	}
	if order.RiderID != "" {
		if _, err := h.wallets.CreditDeliveryEarnings(ctx, order.RiderID, order.ID); err != nil {
			log.Printf("rider earnings for order %s failed: %v", order.ID, err)
		}
	}

	now := time.Now()
	_, _ = db.OrdersCollection.UpdateOne(ctx,
		bson.M{"_id": order.ID, "status": models.OrderPaid},
		bson.M{"$set": bson.M{"status": models.OrderCompleted, "completed_at": now}},
	)

	order.Status = models.OrderCompleted
	order.CompletedAt = &now
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// CancelOrder cancels a placed order, or refunds a paid one back to the
// customer's wallet.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, requester := requesterID(r)

	ctx := r.Context()
	order, err := loadOrder(ctx, ps.ByName("orderId"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if requester != order.CustomerID && requester != order.VendorID {
		utils.RespondWithError(w, http.StatusForbidden, "not a party to this order")
		return
	}

	switch order.Status {
	case models.OrderPlaced:
		_, _ = db.OrdersCollection.UpdateOne(ctx,
			bson.M{"_id": order.ID, "status": models.OrderPlaced},
			bson.M{"$set": bson.M{"status": models.OrderCancelled}},
		)
		order.Status = models.OrderCancelled
		utils.RespondWithJSON(w, http.StatusOK, order)

	case models.OrderPaid:
		txn, err := h.wallets.RefundOrderPayment(ctx, order.ID, order.CustomerID)
		if err != nil {
			wallet.RespondError(w, err)
			return
		}
		now := time.Now()
		_, _ = db.OrdersCollection.UpdateOne(ctx,
			bson.M{"_id": order.ID, "status": models.OrderPaid},
			bson.M{"$set": bson.M{"status": models.OrderRefunded, "refunded_at": now}},
		)
		order.Status = models.OrderRefunded
		order.RefundedAt = &now
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"order": order, "refund": txn})

	default:
		utils.RespondWithError(w, http.StatusConflict, "order cannot be cancelled")
	}
}

// ListOrders returns the requester's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, requester := requesterID(r)
	if requester == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unknown requester")
		return
	}

	field := "customer_id"
	switch kind {
	case models.KindVendor:
		field = "vendor_id"
	case models.KindRider:
		field = "rider_id"
	}

	offset, limit := utils.ParseOffsetLimit(r)
	findOpts := options.Find().
		SetSort(bson.D{{Key: "placed_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := db.OrdersCollection.Find(r.Context(), bson.M{field: requester}, findOpts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	defer cursor.Close(r.Context())

	orders := []models.Order{}
	if err := cursor.All(r.Context(), &orders); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders})
}
