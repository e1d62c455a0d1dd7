package routes

import (
	"tiffin/mq"
	"tiffin/ratelim"
	"tiffin/wallet"

	"github.com/julienschmidt/httprouter"
)

// RoutesWrapper wires every feature's routes. The wallet engine is built
// once here and shared by the auth and order boundaries.
func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	store := wallet.NewMongoStore()
	svc := wallet.NewService(store, wallet.NewRedisLocker(), mq.Emit)

	AddAuthRoutes(router, rateLimiter, svc)
	AddWalletRoutes(router, rateLimiter, svc, wallet.NewLookup(store))
	AddOrderRoutes(router, rateLimiter, svc)
}
