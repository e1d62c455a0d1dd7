package routes

import (
	"tiffin/middleware"
	"tiffin/ratelim"
	"tiffin/wallet"

	"github.com/julienschmidt/httprouter"
)

// AddWalletRoutes wires the wallet engine and lookup service to the router.
// Mutating endpoints go through the idempotency middleware so client retries
// replay the original outcome instead of moving money twice.
func AddWalletRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, svc *wallet.Service, lookup *wallet.Lookup) {
	h := wallet.NewHandler(svc, lookup)

	authed := middleware.Chain(
		rateLimiter.Limit,
		middleware.Authenticate,
		middleware.RequireRoles("customer", "vendor", "rider"),
	)
	mutating := middleware.Chain(
		rateLimiter.Limit,
		middleware.Authenticate,
		middleware.RequireRoles("customer", "vendor", "rider"),
		wallet.Idempotent,
	)

	// Reads
	router.GET("/api/v1/wallet/balance", authed(h.GetBalance))
	router.GET("/api/v1/wallet/transactions", authed(h.ListTransactions))
	router.GET("/api/v1/wallet/transactions/:txnId", authed(h.GetTransaction))
	router.GET("/api/v1/wallet/reconcile", authed(h.Reconcile))

	// Mutations
	router.POST("/api/v1/wallet/fund", mutating(h.Fund))
	router.POST("/api/v1/wallet/withdraw", mutating(h.Withdraw))
	router.POST("/api/v1/wallet/transfer", mutating(h.Transfer))
	router.POST("/api/v1/wallet/pin", authed(h.SetPin))

	// Earnings settlement for vendors and riders
	router.POST("/api/v1/wallet/settle",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles("vendor", "rider"),
			wallet.Idempotent,
		)(h.SettleEarnings),
	)

	// Payout processor callback
	router.POST("/api/v1/wallet/withdrawals/:txnId/complete",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
		)(h.CompleteSettlement),
	)

	// Live event feed; auth happens inside via the token query parameter
	router.GET("/ws/wallet", rateLimiter.Limit(wallet.HandleEventsWS))
}
