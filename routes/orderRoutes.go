package routes

import (
	"tiffin/middleware"
	"tiffin/orders"
	"tiffin/ratelim"
	"tiffin/wallet"

	"github.com/julienschmidt/httprouter"
)

func AddOrderRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, svc *wallet.Service) {
	h := orders.NewHandler(svc)

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

	router.GET("/api/v1/orders", authed(h.ListOrders))
	router.GET("/api/v1/orders/:orderId", authed(h.GetOrder))
	router.POST("/api/v1/orders", mutating(h.PlaceOrder))
	router.POST("/api/v1/orders/:orderId/pay", mutating(h.PayOrder))
	router.POST("/api/v1/orders/:orderId/complete", mutating(h.CompleteOrder))
	router.POST("/api/v1/orders/:orderId/cancel", mutating(h.CancelOrder))
}
