package main

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserInitialBalance é o saldo concedido a cada usuário no cadastro
var UserInitialBalance = decimal.NewFromInt(100)

// User representa um usuário com saldo em conta
type User struct {
	ID      string          `json:"id" db:"id"`
	Balance decimal.Decimal `json:"balance" db:"balance"`
}

// NewUser cria uma nova instância de User
func NewUser(id string, balance decimal.Decimal) (User, error) {
	if id == "" {
		return User{}, NewInvalidEntityError("user", "id", "must not be empty")
	}
	if balance.IsNegative() {
		return User{}, NewInvalidEntityError("user", "balance", "must not be negative")
	}

	return User{ID: id, Balance: balance}, nil
}

// Product representa um produto do catálogo com estoque
type Product struct {
	ID       string          `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	Category string          `json:"category" db:"category"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Quantity int             `json:"quantity" db:"quantity"`
}

// NewProduct cria uma nova instância de Product
func NewProduct(id, name, category string, price decimal.Decimal, quantity int) (Product, error) {
	if id == "" {
		return Product{}, NewInvalidEntityError("product", "id", "must not be empty")
	}
	if price.IsNegative() {
		return Product{}, NewInvalidEntityError("product", "price", "must not be negative")
	}
	if quantity < 0 {
		return Product{}, NewInvalidEntityError("product", "quantity", "must not be negative")
	}

	return Product{ID: id, Name: name, Category: category, Price: price, Quantity: quantity}, nil
}

// OrderItem representa um item de um pedido
type OrderItem struct {
	ProductID string `json:"product_id" db:"product_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
}

// NewOrderItem cria uma nova instância de OrderItem
func NewOrderItem(productID string, quantity int) (OrderItem, error) {
	if productID == "" {
		return OrderItem{}, NewInvalidEntityError("order_item", "product_id", "must not be empty")
	}
	if quantity <= 0 {
		return OrderItem{}, NewInvalidEntityError("order_item", "quantity", "must be positive")
	}

	return OrderItem{ProductID: productID, Quantity: quantity}, nil
}

// PurchaseInfo representa a intenção de compra enviada pelo cliente.
// O order_id é a chave de idempotência fornecida pelo cliente.
type PurchaseInfo struct {
	OrderItems []OrderItem `json:"order_items"`
	OrderID    string      `json:"order_id"`
}

// NewPurchaseInfo cria uma nova instância de PurchaseInfo
func NewPurchaseInfo(orderItems []OrderItem, orderID string) (PurchaseInfo, error) {
	if orderID == "" {
		return PurchaseInfo{}, NewInvalidEntityError("purchase_info", "order_id", "must not be empty")
	}
	if err := validateOrderItems(orderItems); err != nil {
		return PurchaseInfo{}, err
	}

	return PurchaseInfo{OrderItems: orderItems, OrderID: orderID}, nil
}

// Order representa um pedido persistido
type Order struct {
	ID         string      `json:"id" db:"id"`
	UserID     string      `json:"user_id" db:"user_id"`
	OrderItems []OrderItem `json:"order_items"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// NewOrder cria uma nova instância de Order
func NewOrder(id, userID string, orderItems []OrderItem) (Order, error) {
	if id == "" {
		return Order{}, NewInvalidEntityError("order", "id", "must not be empty")
	}
	if userID == "" {
		return Order{}, NewInvalidEntityError("order", "user_id", "must not be empty")
	}
	if err := validateOrderItems(orderItems); err != nil {
		return Order{}, err
	}

	return Order{ID: id, UserID: userID, OrderItems: orderItems}, nil
}

func validateOrderItems(orderItems []OrderItem) error {
	if len(orderItems) == 0 {
		return NewInvalidEntityError("order", "order_items", "must not be empty")
	}

	seen := make(map[string]struct{}, len(orderItems))
	for _, item := range orderItems {
		if item.Quantity <= 0 {
			return NewInvalidEntityError("order", "order_items", "quantity must be positive")
		}
		if _, ok := seen[item.ProductID]; ok {
			return NewInvalidEntityError("order", "order_items", "duplicated product id: "+item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	return nil
}

// AuthRecord representa as credenciais de um usuário
type AuthRecord struct {
	UserID         string `json:"user_id" db:"user_id"`
	Username       string `json:"username" db:"username"`
	HashedPassword string `json:"-" db:"hashed_password"`
}
