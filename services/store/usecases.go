package main

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/shopspring/decimal"
)

// OrderUseCase contém a lógica de negócio de colocação de pedidos
type OrderUseCase struct {
	userRepository    UserRepository
	productRepository ProductRepository
	orderRepository   OrderRepository
	session           RepositorySession
}

// NewOrderUseCase cria uma nova instância de OrderUseCase. Os repositórios
// devem estar ligados ao Operator da mesma sessão.
func NewOrderUseCase(
	userRepository UserRepository,
	productRepository ProductRepository,
	orderRepository OrderRepository,
	session RepositorySession,
) *OrderUseCase {
	return &OrderUseCase{
		userRepository:    userRepository,
		productRepository: productRepository,
		orderRepository:   orderRepository,
		session:           session,
	}
}

// PlaceOrder coloca um pedido dentro de uma única transação: trava o
// usuário, trava os produtos, valida e decrementa o estoque, debita o
// saldo e registra o pedido. Qualquer falha desfaz tudo; nada parcial
// fica visível para outras transações.
//
// Erros de infraestrutura (conexão perdida, lock timeout, conflito de
// serialização) são propagados sem tradução: o chamador pode repetir com
// uma sessão nova, e a unicidade do order id garante que a repetição de
// um pedido já confirmado falhe em vez de cobrar duas vezes.
func (uc *OrderUseCase) PlaceOrder(ctx context.Context, userID string, purchase PurchaseInfo) error {
	return uc.session.Scope(ctx, func(ctx context.Context) error {
		user, err := uc.userRepository.GetByID(ctx, userID, LockModify)
		if err != nil {
			return err
		}

		products, err := uc.lockProducts(ctx, purchase.OrderItems)
		if err != nil {
			return err
		}

		totalPrice := decimal.Zero
		for _, item := range purchase.OrderItems {
			product := products[item.ProductID]
			if item.Quantity > product.Quantity {
				return NewPlaceOrderError(ReasonQuantityNotEnough)
			}

			product.Quantity -= item.Quantity
			if err := uc.productRepository.Save(ctx, product); err != nil {
				return err
			}

			totalPrice = totalPrice.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		if totalPrice.GreaterThan(user.Balance) {
			return NewPlaceOrderError(ReasonBalanceNotEnough)
		}
		user.Balance = user.Balance.Sub(totalPrice)
		if err := uc.userRepository.Save(ctx, user); err != nil {
			return err
		}

		order, err := NewOrder(purchase.OrderID, userID, purchase.OrderItems)
		if err != nil {
			return err
		}
		if err := uc.orderRepository.Add(ctx, order); err != nil {
			var exists *EntityAlreadyExistsError
			if errors.As(err, &exists) {
				return NewPlaceOrderError(ReasonOrderAlreadyExists)
			}
			return err
		}

		if err := uc.session.Commit(ctx); err != nil {
			return err
		}

		log.Printf("✅ Order placed: %s (user %s, total %s)", purchase.OrderID, userID, totalPrice)
		return nil
	})
}

// lockProducts trava os produtos sempre em ordem lexicográfica de id.
// Com todas as transações adquirindo locks na mesma ordem global, duas
// colocações que compartilham produtos nunca formam espera circular:
// a contenção vira bloqueio simples, nunca deadlock.
func (uc *OrderUseCase) lockProducts(ctx context.Context, orderItems []OrderItem) (map[string]Product, error) {
	productIDs := make([]string, 0, len(orderItems))
	for _, item := range orderItems {
		productIDs = append(productIDs, item.ProductID)
	}
	sort.Strings(productIDs)

	products := make(map[string]Product, len(productIDs))
	for _, productID := range productIDs {
		product, err := uc.productRepository.GetByID(ctx, productID, LockModify)
		if err != nil {
			return nil, err
		}
		products[productID] = product
	}

	return products, nil
}

// ListOrders devolve os pedidos do usuário, o mais recente primeiro
func (uc *OrderUseCase) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	var orders []Order
	err := uc.session.Scope(ctx, func(ctx context.Context) error {
		var err error
		orders, err = uc.orderRepository.GetByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}
