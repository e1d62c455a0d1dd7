package routes

import (
	"tiffin/auth"
	"tiffin/ratelim"
	"tiffin/wallet"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, svc *wallet.Service) {
	authHandler := auth.NewHandler(svc)

	router.POST("/api/v1/auth/register", rateLimiter.Limit(authHandler.Register))
	router.POST("/api/v1/auth/login", rateLimiter.Limit(authHandler.Login))
}
