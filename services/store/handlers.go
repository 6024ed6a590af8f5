package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SessionFactory cria uma sessão nova. Cada requisição usa a sua própria:
// a sessão não é segura para uso concorrente.
type SessionFactory func() RepositorySession

// SignUpRequest representa a requisição de cadastro
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenRequest representa a requisição de emissão de token
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OrderItemRequest representa um item do pedido na API
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest representa a requisição de colocação de pedido.
// O order_id é gerado pelo cliente e funciona como chave de idempotência;
// o formato é validado aqui na borda.
type PlaceOrderRequest struct {
	OrderID    string             `json:"order_id" binding:"required,uuid"`
	OrderItems []OrderItemRequest `json:"order_items" binding:"required,min=1,dive"`
}

// OrderItemModel representa um item de pedido na resposta
type OrderItemModel struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderModel representa um pedido na resposta
type OrderModel struct {
	ID         string           `json:"id"`
	OrderItems []OrderItemModel `json:"order_items"`
	CreatedAt  time.Time        `json:"created_at"`
}

// StoreHandler contém os handlers HTTP do serviço
type StoreHandler struct {
	sessions     SessionFactory
	authConfig   AuthConfig
	tracer       trace.Tracer
	ordersPlaced metric.Int64Counter
}

// NewStoreHandler cria uma nova instância de StoreHandler
func NewStoreHandler(sessions SessionFactory, authConfig AuthConfig, tracer trace.Tracer) *StoreHandler {
	ordersPlaced, err := otel.Meter("store-service").Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Orders placed successfully"),
	)
	if err != nil {
		log.Printf("⚠️ Failed to create orders counter: %v", err)
	}

	return &StoreHandler{
		sessions:     sessions,
		authConfig:   authConfig,
		tracer:       tracer,
		ordersPlaced: ordersPlaced,
	}
}

func (h *StoreHandler) newOrderUseCase(session RepositorySession) *OrderUseCase {
	return NewOrderUseCase(
		NewPostgresUserRepository(session.Operator),
		NewPostgresProductRepository(session.Operator),
		NewPostgresOrderRepository(session.Operator),
		session,
	)
}

func (h *StoreHandler) newAuthUseCase(session RepositorySession) *AuthUseCase {
	return NewAuthUseCase(
		h.authConfig,
		NewPostgresUserRepository(session.Operator),
		NewPostgresAuthRecordRepository(session.Operator),
		session,
	)
}

// SignUp cadastra um novo usuário
func (h *StoreHandler) SignUp(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "sign_up")
	defer span.End()

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("username", req.Username))

	session := h.sessions()
	defer session.Close(ctx)

	userID, err := h.newAuthUseCase(session).SignUp(ctx, req.Username, req.Password)
	if err != nil {
		span.RecordError(err)
		var registerErr *RegisterUserError
		if errors.As(err, &registerErr) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": userID})
}

// IssueToken emite um token de acesso para credenciais válidas
func (h *StoreHandler) IssueToken(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "issue_token")
	defer span.End()

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := h.sessions()
	defer session.Close(ctx)

	token, err := h.newAuthUseCase(session).IssueToken(ctx, req.Username, req.Password)
	if err != nil {
		span.RecordError(err)
		var tokenErr *AccessTokenError
		if errors.As(err, &tokenErr) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// PlaceOrder coloca um pedido para o usuário autenticado
func (h *StoreHandler) PlaceOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "place_order")
	defer span.End()

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderItems := make([]OrderItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		orderItem, err := NewOrderItem(item.ProductID, item.Quantity)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		orderItems = append(orderItems, orderItem)
	}

	purchase, err := NewPurchaseInfo(orderItems, req.OrderID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("order_id", purchase.OrderID),
		attribute.Int("order_items", len(purchase.OrderItems)),
	)

	session := h.sessions()
	defer session.Close(ctx)

	if err := h.newOrderUseCase(session).PlaceOrder(ctx, userID, purchase); err != nil {
		span.RecordError(err)

		var placeErr *PlaceOrderError
		var notFound *EntityNotFoundError
		switch {
		case errors.As(err, &placeErr) && placeErr.Reason == ReasonOrderAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &placeErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.As(err, &notFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if h.ordersPlaced != nil {
		h.ordersPlaced.Add(ctx, 1)
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": req.OrderID, "message": "order placed successfully"})
}

// ListOrders devolve os pedidos do usuário autenticado, o mais recente primeiro
func (h *StoreHandler) ListOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_orders")
	defer span.End()

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user_id", userID))

	session := h.sessions()
	defer session.Close(ctx)

	orders, err := h.newOrderUseCase(session).ListOrders(ctx, userID)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	models := make([]OrderModel, 0, len(orders))
	for _, order := range orders {
		items := make([]OrderItemModel, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			items = append(items, OrderItemModel{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		models = append(models, OrderModel{ID: order.ID, OrderItems: items, CreatedAt: order.CreatedAt})
	}

	c.JSON(http.StatusOK, models)
}

// HealthCheck verifica a saúde do serviço
func (h *StoreHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "store-service",
	})
}

// authenticate extrai e valida o bearer token; responde 401 quando inválido
func (h *StoreHandler) authenticate(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", false
	}

	userID, err := h.authConfig.DecodeAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
		return "", false
	}

	return userID, true
}
