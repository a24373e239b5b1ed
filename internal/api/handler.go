package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, gateway string, headers http.Header, body []byte) error
}

type OrderOperator interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	OrderStats(ctx context.Context, guildID string) (*models.OrderStats, error)
	ListTransactions(ctx context.Context, orderID string) ([]models.Transaction, error)
	FulfillOrder(ctx context.Context, orderID, operatorID string) (*models.Order, []models.StockItem, error)
	CancelOrderAsOperator(ctx context.Context, orderID, operatorID string) error
}

type Refunder interface {
	RefundOrder(ctx context.Context, orderID, operatorID string) error
}

type Catalog interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductUpdate) (*models.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error)
	AddStock(ctx context.Context, productID int64, raw string) (int, error)
	StockSummary(ctx context.Context, productID int64) (*models.StockSummary, error)
}

type GuildConfig interface {
	Get(ctx context.Context, guildID string) (map[string]string, error)
	SetMany(ctx context.Context, guildID string, values map[string]string) error
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Deps struct {
	Webhooks   WebhookProcessor
	Orders     OrderOperator
	Payments   Refunder
	Catalog    Catalog
	Config     GuildConfig
	AdminToken string
	Checks     map[string]Check
}

// Handler serves gateway webhooks, health probes, metrics and the admin API.
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, logger: util.Named("http")}
}

func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhook/:gateway", h.handleWebhook)

	if h.deps.AdminToken == "" {
		h.logger.Warn("DASHBOARD_TOKEN not set, admin API disabled")
		return
	}

	v1 := router.Group("/api/v1", bearerAuth(h.deps.AdminToken))
	{
		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.GET("/products/:id/stock", h.stockSummary)
		v1.POST("/products/:id/stock", h.addStock)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/stats", h.orderStats)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/fulfill", h.fulfillOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/orders/:id/refund", h.refundOrder)

		v1.GET("/config/:guild_id", h.getConfig)
		v1.PUT("/config/:guild_id", h.updateConfig)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// handleWebhook acknowledges with a bare 200 whenever the delivery was
// recorded or can never succeed, so the gateway only retries real failures.
func (h *Handler) handleWebhook(c *gin.Context) {
	gateway := strings.ToLower(c.Param("gateway"))
	label := gateway
	if !payment.IsSupported(gateway) {
		label = "unknown"
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		util.WebhooksReceivedTotal.WithLabelValues(label, "malformed").Inc()
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.deps.Webhooks.HandleWebhook(c.Request.Context(), gateway, c.Request.Header, body)
	switch {
	case err == nil:
		util.WebhooksReceivedTotal.WithLabelValues(label, "ok").Inc()
		c.Status(http.StatusOK)
	case errors.Is(err, service.ErrUnsupportedGateway):
		util.WebhooksReceivedTotal.WithLabelValues(label, "unknown_gateway").Inc()
		c.Status(http.StatusNotFound)
	case errors.Is(err, service.ErrMalformedPayload):
		util.WebhooksReceivedTotal.WithLabelValues(label, "malformed").Inc()
		h.logger.Warn("Dropping malformed webhook", zap.String("gateway", gateway), zap.Error(err))
		c.Status(http.StatusOK)
	case errors.Is(err, service.ErrInvalidSignature):
		util.WebhooksReceivedTotal.WithLabelValues(label, "invalid_signature").Inc()
		c.Status(http.StatusUnauthorized)
	default:
		util.WebhooksReceivedTotal.WithLabelValues(label, "error").Inc()
		h.logger.Error("Webhook processing failed", zap.String("gateway", gateway), zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

type productRequest struct {
	GuildID     string          `json:"guild_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	EmbedColor  string          `json:"embed_color"`
}

type productUpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
	EmbedColor  *string          `json:"embed_color"`
}

type stockRequest struct {
	Items []string `json:"items" binding:"required"`
}

func (h *Handler) listProducts(c *gin.Context) {
	guildID := c.Query("guild_id")
	if guildID == "" {
		badRequest(c, "guild_id is required", nil)
		return
	}
	activeOnly := c.DefaultQuery("active", "true") != "false"

	products, err := h.deps.Catalog.ListProducts(c.Request.Context(), guildID, activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	p, err := h.deps.Catalog.CreateProduct(c.Request.Context(), service.ProductInput{
		GuildID:     req.GuildID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		EmbedColor:  req.EmbedColor,
		CreatedBy:   operator(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	p, err := h.deps.Catalog.UpdateProduct(c.Request.Context(), id, service.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		EmbedColor:  req.EmbedColor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.deps.Catalog.DeactivateProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) stockSummary(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	sum, err := h.deps.Catalog.StockSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) addStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	n, err := h.deps.Catalog.AddStock(c.Request.Context(), id, strings.Join(req.Items, "\n"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": n})
}

func (h *Handler) listOrders(c *gin.Context) {
	f := store.OrderFilter{
		GuildID: c.Query("guild_id"),
		UserID:  c.Query("user_id"),
		Status:  c.Query("status"),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	orders, err := h.deps.Orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": f.Limit, "offset": f.Offset})
}

func (h *Handler) orderStats(c *gin.Context) {
	stats, err := h.deps.Orders.OrderStats(c.Request.Context(), c.Query("guild_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.deps.Orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	txs, err := h.deps.Orders.ListTransactions(ctx, order.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "transactions": txs})
}

func (h *Handler) fulfillOrder(c *gin.Context) {
	order, items, err := h.deps.Orders.FulfillOrder(c.Request.Context(), c.Param("id"), operator(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	if err := h.deps.Orders.CancelOrderAsOperator(c.Request.Context(), c.Param("id"), operator(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.OrderStatusCancelled})
}

func (h *Handler) refundOrder(c *gin.Context) {
	if err := h.deps.Payments.RefundOrder(c.Request.Context(), c.Param("id"), operator(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.PaymentStatusRefunded})
}

func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := h.deps.Config.Get(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) updateConfig(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.deps.Config.SetMany(c.Request.Context(), c.Param("guild_id"), values); err != nil {
		writeError(c, err)
		return
	}
	h.getConfig(c)
}

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid product ID", err)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// operator names the dashboard user in audit fields.
func operator(c *gin.Context) string {
	if id := c.GetHeader("X-Operator-ID"); id != "" {
		return id
	}
	return "dashboard"
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Internal error"

	var apiErr *payment.APIError
	switch {
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrOrderNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrInvalidProductName), errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidColor), errors.Is(err, service.ErrEmptyStock),
		errors.Is(err, service.ErrUnknownConfigKey), errors.Is(err, service.ErrInvalidConfigValue),
		errors.Is(err, service.ErrUnsupportedGateway):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrOrderNotUnfulfilled), errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrOrderNotPaid),
		errors.Is(err, service.ErrOrderNotPending), errors.Is(err, service.ErrPaymentAlreadyCreated):
		status, msg = http.StatusConflict, "Conflict"
	case errors.Is(err, service.ErrGatewayNotConfigured):
		status, msg = http.StatusUnprocessableEntity, "Gateway not configured"
	case errors.As(err, &apiErr), errors.Is(err, service.ErrUnsupportedMethod):
		status, msg = http.StatusBadGateway, "Gateway error"
	}

	if status == http.StatusInternalServerError {
		util.Named("http").Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg, "details": err.Error()})
}

func bearerAuth(token string) gin.HandlerFunc {
	expected := []byte("Bearer " + token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
