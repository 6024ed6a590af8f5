package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	// Act
	user, err := NewUser("u1", decimal.NewFromInt(100))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(100)))
}

func TestNewUserRejectsNegativeBalance(t *testing.T) {
	_, err := NewUser("u1", decimal.NewFromInt(-1))

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewUserRejectsEmptyID(t *testing.T) {
	_, err := NewUser("", decimal.NewFromInt(10))

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewProduct(t *testing.T) {
	product, err := NewProduct("p1", "Keyboard", "peripherals", decimal.RequireFromString("6.7"), 5)

	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, "Keyboard", product.Name)
	assert.Equal(t, "peripherals", product.Category)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("6.7")))
	assert.Equal(t, 5, product.Quantity)
}

func TestNewProductRejectsNegativePrice(t *testing.T) {
	_, err := NewProduct("p1", "Keyboard", "peripherals", decimal.NewFromInt(-2), 5)

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewProductRejectsNegativeQuantity(t *testing.T) {
	_, err := NewProduct("p1", "Keyboard", "peripherals", decimal.NewFromInt(2), -1)

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewOrderItemRejectsNonPositiveQuantity(t *testing.T) {
	_, err := NewOrderItem("p1", 0)
	assert.ErrorIs(t, err, &InvalidEntityError{})

	_, err = NewOrderItem("p1", -3)
	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewPurchaseInfo(t *testing.T) {
	items := []OrderItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 5}}

	purchase, err := NewPurchaseInfo(items, "o1")

	require.NoError(t, err)
	assert.Equal(t, "o1", purchase.OrderID)
	assert.Equal(t, items, purchase.OrderItems)
}

func TestNewPurchaseInfoRejectsEmptyItems(t *testing.T) {
	_, err := NewPurchaseInfo(nil, "o1")

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewPurchaseInfoRejectsDuplicatedProductIDs(t *testing.T) {
	items := []OrderItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p1", Quantity: 5}}

	_, err := NewPurchaseInfo(items, "o1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated product id")
}

func TestNewPurchaseInfoRejectsEmptyOrderID(t *testing.T) {
	_, err := NewPurchaseInfo([]OrderItem{{ProductID: "p1", Quantity: 1}}, "")

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewOrderRejectsEmptyItems(t *testing.T) {
	_, err := NewOrder("o1", "u1", nil)

	assert.ErrorIs(t, err, &InvalidEntityError{})
}

func TestNewOrder(t *testing.T) {
	items := []OrderItem{{ProductID: "p1", Quantity: 2}}

	order, err := NewOrder("o1", "u1", items)

	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, items, order.OrderItems)
}
