package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LockLevel define o modo de leitura de uma linha
type LockLevel int

const (
	LockNone LockLevel = iota
	// LockModify adquire a linha com FOR UPDATE: nenhuma outra transação
	// pode adquirir o mesmo lock nem modificar a linha até o fim desta.
	LockModify
)

// lockQuery anexa a cláusula de lock ao SELECT quando necessário
func lockQuery(query string, level LockLevel) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	if level == LockModify {
		query += " FOR UPDATE"
	}
	return query + ";"
}

const uniqueViolationCode = "23505"

// translateUniqueViolation converte violação de unicidade (SQLSTATE 23505)
// no erro de domínio correspondente; outros erros são propagados embrulhados
func translateUniqueViolation(err error, field, value, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return NewEntityAlreadyExistsError(field, value)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// UserRepository define as operações de persistência de usuários
type UserRepository interface {
	Save(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string, level LockLevel) (User, error)
}

// ProductRepository define as operações de persistência de produtos
type ProductRepository interface {
	Save(ctx context.Context, product Product) error
	GetByID(ctx context.Context, productID string, level LockLevel) (Product, error)
}

// OrderRepository define as operações de persistência de pedidos
type OrderRepository interface {
	Add(ctx context.Context, order Order) error

	// GetByUserID devolve os pedidos do usuário, o mais recente primeiro
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
}

// AuthRecordRepository define as operações de persistência de credenciais
type AuthRecordRepository interface {
	Add(ctx context.Context, record AuthRecord) error
	GetByUsername(ctx context.Context, username string) (AuthRecord, error)
}

// PostgresUserRepository implementa UserRepository usando PostgreSQL
type PostgresUserRepository struct {
	newOperator OperatorProvider
}

// NewPostgresUserRepository cria uma nova instância de PostgresUserRepository
func NewPostgresUserRepository(newOperator OperatorProvider) *PostgresUserRepository {
	return &PostgresUserRepository{newOperator: newOperator}
}

// Save insere o usuário, ou atualiza o saldo se o id já existir
func (r *PostgresUserRepository) Save(ctx context.Context, user User) error {
	_, err := r.newOperator().Exec(ctx, `
		INSERT INTO users (id, balance)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance
	`, user.ID, user.Balance)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetByID busca o usuário pelo id, opcionalmente com lock exclusivo
func (r *PostgresUserRepository) GetByID(ctx context.Context, userID string, level LockLevel) (User, error) {
	query := lockQuery("SELECT id, balance FROM users WHERE id = $1", level)

	var user User
	err := r.newOperator().QueryRow(ctx, query, userID).Scan(&user.ID, &user.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NewEntityNotFoundError("user_id", userID)
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// PostgresProductRepository implementa ProductRepository usando PostgreSQL
type PostgresProductRepository struct {
	newOperator OperatorProvider
}

// NewPostgresProductRepository cria uma nova instância de PostgresProductRepository
func NewPostgresProductRepository(newOperator OperatorProvider) *PostgresProductRepository {
	return &PostgresProductRepository{newOperator: newOperator}
}

// Save insere o produto, ou atualiza seus campos se o id já existir
func (r *PostgresProductRepository) Save(ctx context.Context, product Product) error {
	_, err := r.newOperator().Exec(ctx, `
		INSERT INTO products (id, name, category, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity
	`, product.ID, product.Name, product.Category, product.Price, product.Quantity)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetByID busca o produto pelo id, opcionalmente com lock exclusivo
func (r *PostgresProductRepository) GetByID(ctx context.Context, productID string, level LockLevel) (Product, error) {
	query := lockQuery("SELECT id, name, category, price, quantity FROM products WHERE id = $1", level)

	var product Product
	err := r.newOperator().QueryRow(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.Price,
		&product.Quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, NewEntityNotFoundError("product_id", productID)
		}
		return Product{}, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// PostgresOrderRepository implementa OrderRepository usando PostgreSQL
type PostgresOrderRepository struct {
	newOperator OperatorProvider
}

// NewPostgresOrderRepository cria uma nova instância de PostgresOrderRepository
func NewPostgresOrderRepository(newOperator OperatorProvider) *PostgresOrderRepository {
	return &PostgresOrderRepository{newOperator: newOperator}
}

// Add insere o pedido e seus itens. A chave primária de orders garante que
// um order id repetido resulte em EntityAlreadyExistsError, sem pré-consulta.
func (r *PostgresOrderRepository) Add(ctx context.Context, order Order) error {
	op := r.newOperator()

	_, err := op.Exec(ctx,
		"INSERT INTO orders (id, user_id) VALUES ($1, $2)",
		order.ID, order.UserID,
	)
	if err != nil {
		return translateUniqueViolation(err, "order_id", order.ID, "failed to insert order")
	}

	for _, item := range order.OrderItems {
		_, err := op.Exec(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)",
			order.ID, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

// GetByUserID busca os pedidos do usuário, o mais recente primeiro
func (r *PostgresOrderRepository) GetByUserID(ctx context.Context, userID string) ([]Order, error) {
	op := r.newOperator()

	rows, err := op.Query(ctx, `
		SELECT id, user_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	// Uma única consulta traz os itens de todos os pedidos, agrupados em
	// memória em seguida.
	orderIDs := make([]string, len(orders))
	for i, order := range orders {
		orderIDs[i] = order.ID
	}

	itemsByOrder, err := r.getOrderItems(ctx, op, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].OrderItems = itemsByOrder[orders[i].ID]
	}

	return orders, nil
}

func (r *PostgresOrderRepository) getOrderItems(ctx context.Context, op Operator, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := op.Query(ctx, `
		SELECT order_id, product_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY product_id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		itemsByOrder[orderID] = append(itemsByOrder[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return itemsByOrder, nil
}

// PostgresAuthRecordRepository implementa AuthRecordRepository usando PostgreSQL
type PostgresAuthRecordRepository struct {
	newOperator OperatorProvider
}

// NewPostgresAuthRecordRepository cria uma nova instância de PostgresAuthRecordRepository
func NewPostgresAuthRecordRepository(newOperator OperatorProvider) *PostgresAuthRecordRepository {
	return &PostgresAuthRecordRepository{newOperator: newOperator}
}

// Add insere as credenciais; username repetido resulta em EntityAlreadyExistsError
func (r *PostgresAuthRecordRepository) Add(ctx context.Context, record AuthRecord) error {
	_, err := r.newOperator().Exec(ctx, `
		INSERT INTO auth_records (user_id, username, hashed_password)
		VALUES ($1, $2, $3)
	`, record.UserID, record.Username, record.HashedPassword)
	if err != nil {
		return translateUniqueViolation(err, "username", record.Username, "failed to insert auth record")
	}
	return nil
}

// GetByUsername busca as credenciais pelo username
func (r *PostgresAuthRecordRepository) GetByUsername(ctx context.Context, username string) (AuthRecord, error) {
	var record AuthRecord
	err := r.newOperator().QueryRow(ctx, `
		SELECT user_id, username, hashed_password
		FROM auth_records
		WHERE username = $1
	`, username).Scan(&record.UserID, &record.Username, &record.HashedPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthRecord{}, NewEntityNotFoundError("username", username)
		}
		return AuthRecord{}, fmt.Errorf("failed to get auth record: %w", err)
	}

	return record, nil
}
