package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/vivushop/pkg/config"
	"github.com/example/vivushop/pkg/order"
	"github.com/example/vivushop/pkg/payment"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Gateway struct {
	config     *config.Config
	logger     *zap.Logger
	router     *gin.Engine
	builder    *order.Builder
	reconciler *payment.Reconciler
}

func NewGateway(cfg *config.Config, logger *zap.Logger, builder *order.Builder, reconciler *payment.Reconciler) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:     cfg,
		logger:     logger,
		router:     router,
		builder:    builder,
		reconciler: reconciler,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", g.createOrder)
			orders.GET("", g.listOrders)
			orders.GET("/:id", g.getOrder)
		}

		// Gateway-facing payment callback
		v1.POST("/payment/vnpay/ipn", g.vnpayIPN)
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

type createOrderRequest struct {
	Items         []order.ItemRequest `json:"items"`
	FullName      string              `json:"full_name"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	PaymentMethod string              `json:"payment_method"`
	Note          string              `json:"note"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req createOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := g.builder.Create(c.Request.Context(), order.CreateRequest{
		UserID: userID,
		Items:  req.Items,
		Delivery: order.DeliveryInfo{
			FullName: req.FullName,
			Phone:    req.Phone,
			Address:  req.Address,
		},
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		g.writeCreateError(c, err)
		return
	}

	if result.RedirectURL != "" {
		c.JSON(http.StatusFound, gin.H{"redirect_url": result.RedirectURL})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (g *Gateway) writeCreateError(c *gin.Context, err error) {
	var itemErrs order.ItemErrors
	var gatewayErr *order.GatewayError
	switch {
	case errors.Is(err, order.ErrMissingDelivery), errors.Is(err, order.ErrNoItems):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &itemErrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "some items could not be ordered",
			"details": itemErrs,
		})
	case errors.Is(err, order.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to initiate payment"})
	default:
		g.logger.Error("Failed to create order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
	}
}

func (g *Gateway) listOrders(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	orders, err := g.builder.ListOrders(c.Request.Context(), userID)
	if err != nil {
		g.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

func (g *Gateway) getOrder(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	ord, lines, err := g.builder.GetOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		g.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":       ord,
		"order_lines": lines,
	})
}

// vnpayIPN answers the gateway's asynchronous payment notification. The
// response body always carries the gateway result-code convention.
func (g *Gateway) vnpayIPN(c *gin.Context) {
	var params map[string]string
	if err := c.BindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, payment.Result{
			RspCode: payment.RspInvalidRequest,
			Message: "Invalid request",
		})
		return
	}

	result, err := g.reconciler.HandleCallback(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
