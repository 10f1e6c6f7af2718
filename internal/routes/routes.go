package routes

import (
	"net/http"

	"github.com/01moynul/orderdesk/internal/handlers"
	"github.com/01moynul/orderdesk/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options carries the router settings that come from configuration.
type Options struct {
	CORSOrigin       string
	PaymentRateRPS   float64
	PaymentRateBurst int
	Logger           *zap.Logger
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	middleware.RegisterValidators()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Logger))

	// --- APPLY THE CORS GUARD ---
	router.Use(middleware.CORSMiddleware(opts.CORSOrigin))

	api := router.Group("/api")
	{
		// --- Ping Route (Public) ---
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		api.POST("/users/login", h.Login)

		// --- Order Routes (Login Required) ---
		authn := middleware.AuthMiddleware(h.Tokens, h.Store)
		admin := middleware.AdminMiddleware()
		validID := middleware.ValidateObjectIDParam("id")

		orders := api.Group("/orders")
		orders.Use(authn)
		{
			orders.POST("", h.CreateOrder)
			orders.GET("", admin, h.GetOrders)
			orders.GET("/my-orders", h.GetMyOrders)
			orders.POST("/reconcile", admin, h.ReconcileOrders)

			orders.GET("/:id", validID, h.GetOrderByID)
			orders.PUT("/:id/pay", validID, h.UpdateOrderToPaid)
			orders.PUT("/:id/deliver", admin, validID, h.UpdateOrderToDelivered)

			// --- PayPal Routes (rate limited per client IP) ---
			limiter := middleware.NewIPRateLimiter(opts.PaymentRateRPS, opts.PaymentRateBurst)
			pp := orders.Group("/paypal")
			pp.Use(limiter.Middleware())
			{
				pp.POST("/create-order", h.PayPalCreateOrder)
				pp.POST("/capture-order", h.PayPalCaptureOrder)
			}
		}
	}

	return router
}
