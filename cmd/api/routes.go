package main

import (
	"credit-store/internal/auth"
	"credit-store/internal/httpapi"
	"credit-store/internal/rbac"
	"credit-store/internal/sms"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, authManager *auth.Manager, h httpapi.Handlers, webhook sms.WebhookHandler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// SMS gateway webhook. Authenticated by the shared secret in the
	// body; rate limited per sender inside the handler.
	r.POST("/webhook/sms", webhook.Handle)

	r.POST("/v1/auth/login", h.Login)

	// admin API
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	{
		review := rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin)
		manage := rbac.RequireAnyRole(rbac.RoleAdmin)

		topups := v1.Group("/topups")
		{
			topups.GET("/pending", review, h.ListPendingTopups)
			topups.POST("/:id/approve", review, h.ApproveTopup)
			topups.POST("/:id/reject", review, h.RejectTopup)
		}

		v1.POST("/wallets/adjust", manage, h.AdjustWallet)

		userRoutes := v1.Group("/users", manage)
		{
			userRoutes.GET("", h.ListUsers)
			userRoutes.PUT("/:id/tier", h.SetUserTier)
			userRoutes.PUT("/:id/blocked", h.SetUserBlocked)
			userRoutes.GET("/:id/balance", h.GetUserBalance)
		}

		products := v1.Group("/products", manage)
		{
			products.GET("", h.ListProducts)
			products.POST("", h.CreateProduct)
			products.PUT("/:id", h.UpdateProduct)
		}

		methods := v1.Group("/methods", manage)
		{
			methods.GET("", h.ListMethods)
			methods.POST("", h.CreateMethod)
			methods.PUT("/:id", h.UpdateMethod)
		}

		v1.PUT("/rates", manage, h.SetRate)

		orderRoutes := v1.Group("/orders", review)
		{
			orderRoutes.GET("", h.ListOrders)
			orderRoutes.POST("/:id/complete", h.CompleteOrder)
		}

		v1.GET("/stats", review, h.GetStats)
	}

	// bot-facing gateway
	gw := r.Group("/gateway")
	gw.Use(h.RequireGatewaySecret())
	{
		gw.POST("/users", h.GatewayRegister)
		gw.GET("/users/:tg_id/balance", h.GatewayBalance)
		gw.GET("/users/:tg_id/topups", h.GatewayListTopups)
		gw.GET("/users/:tg_id/orders", h.GatewayListOrders)
		gw.POST("/topups", h.GatewayCreateTopup)
		gw.POST("/orders", h.GatewayPlaceOrder)
		gw.GET("/menu", h.GatewayMenu)
		gw.GET("/convo/:tg_id", h.GatewayConvoState)
		gw.POST("/convo", h.GatewayConvoApply)
	}
}
