package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/handler"
	"storefront/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CheckoutHandler *handler.CheckoutHandler
	PaymentHandler  *handler.PaymentHandler
	CallbackHandler *handler.CallbackHandler
	OrderHandler    *handler.OrderHandler
	AdminHandler    *handler.AdminHandler
	MetricsHandler  http.Handler
	RedisClient     *redis.Client // optional; enables Idempotency-Key replay
	NewRelicApp     *newrelic.Application
	Logger          *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := router.Group("/v1")
	{
		// Gateway callback: no identity, no idempotency replay; every method is
		// routed so that non-POST requests get 405 from the handler.
		v1.Any("/mpesa/callback", deps.CallbackHandler.HandleCallback)

		api := v1.Group("")
		api.Use(middleware.Identity())
		if deps.RedisClient != nil {
			api.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
		}

		api.POST("/checkout", deps.CheckoutHandler.Checkout)

		payments := api.Group("/payment-requests")
		{
			payments.POST("", deps.PaymentHandler.CreatePaymentRequest)
			payments.GET("/:id", deps.PaymentHandler.GetStatus)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", deps.OrderHandler.ListOrders)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.GET("/:id/receipt", deps.OrderHandler.GetReceipt)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/orders/:id/dispatch", deps.OrderHandler.Dispatch)
			admin.POST("/orders/:id/deliver", deps.OrderHandler.MarkDelivered)
			admin.GET("/discrepancies", deps.AdminHandler.ListDiscrepancies)
		}
	}

	return router
}
