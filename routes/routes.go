package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/flash-sale-service/controllers"
	"github.com/yashrajoria/flash-sale-service/middleware"
	"github.com/yashrajoria/flash-sale-service/models"
)

type Controllers struct {
	Auth     *controllers.AuthController
	Product  *controllers.ProductController
	Purchase *controllers.PurchaseController
	Webhook  *controllers.WebhookController
}

// RegisterRoutes mounts the API under /api/v1 plus /health. rateLimit, if
// non-nil, applies to every route except the provider webhooks.
func RegisterRoutes(r *gin.Engine, ctl Controllers, tokens middleware.TokenValidator, rateLimit gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := r.Group("/api/v1")

	// Provider callbacks authenticate by signature, not by token.
	api.POST("/webhook", ctl.Webhook.Paystack)
	api.POST("/stripe/webhook", ctl.Webhook.Stripe)

	public := api.Group("")
	if rateLimit != nil {
		public.Use(rateLimit)
	}

	public.POST("/register", ctl.Auth.Register)
	public.POST("/login", ctl.Auth.Login)

	public.GET("/product/:id", ctl.Product.GetProduct)
	public.GET("/products", ctl.Product.ListProducts)

	authed := public.Group("")
	authed.Use(middleware.AuthMiddleware(tokens))
	authed.GET("/leaderboard", ctl.Purchase.Leaderboard)
	authed.POST("/init/pay", ctl.Purchase.InitPay)
	authed.POST("/complete/:reference", ctl.Purchase.Complete)

	admin := authed.Group("")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.POST("/products", ctl.Product.CreateProduct)
}
