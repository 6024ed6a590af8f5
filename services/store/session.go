package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Operator executa statements dentro da transação corrente da sessão.
// pgx.Tx satisfaz esta interface.
type Operator interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OperatorProvider devolve o Operator ligado à transação corrente de uma sessão.
// É a fábrica injetada nos repositórios na construção.
type OperatorProvider func() Operator

// RepositorySession delimita uma transação com rollback automático na saída.
//
// Uso:
//
//	err := session.Scope(ctx, func(ctx context.Context) error {
//		// operações de repositório dentro da mesma transação
//		return session.Commit(ctx)
//	})
//
// Tudo que não foi confirmado via Commit é desfeito ao sair do escopo,
// inclusive quando fn retorna erro. Somente a sessão finaliza transações;
// repositórios nunca chamam Commit.
//
// Uma sessão não pode ser compartilhada entre goroutines: cada chamada
// concorrente precisa da sua própria sessão (sua própria conexão).
type RepositorySession interface {
	Scope(ctx context.Context, fn func(ctx context.Context) error) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Operator() Operator
	Close(ctx context.Context)
}

// PostgresSession implementa RepositorySession sobre uma conexão do pool.
// A mesma conexão é reutilizada entre escopos; cada escopo abre uma
// transação nova com isolamento serializable.
type PostgresSession struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	conn        *pgxpool.Conn
	tx          pgx.Tx
}

// NewPostgresSession cria uma nova sessão. lockTimeout zero significa
// esperar locks indefinidamente, deixando a detecção de deadlock a cargo
// do Postgres.
func NewPostgresSession(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresSession {
	return &PostgresSession{pool: pool, lockTimeout: lockTimeout}
}

// Scope abre uma transação serializable e executa fn dentro dela
func (s *PostgresSession) Scope(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx != nil {
		return errors.New("session scope is already open")
	}
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.exit(ctx)

	return fn(ctx)
}

// Commit persiste as mudanças feitas desde o último commit/rollback e
// abre uma nova transação para que o escopo continue utilizável
func (s *PostgresSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("commit outside of session scope")
	}
	if err := s.tx.Commit(ctx); err != nil {
		s.tx = nil
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.begin(ctx)
}

// Rollback descarta as mudanças não confirmadas e abre uma nova transação
func (s *PostgresSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return errors.New("rollback outside of session scope")
	}
	if err := s.tx.Rollback(ctx); err != nil {
		s.tx = nil
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return s.begin(ctx)
}

// Operator devolve o handle de execução da transação corrente.
// Só é válido dentro de um Scope.
func (s *PostgresSession) Operator() Operator {
	return s.tx
}

// Close devolve a conexão ao pool. A sessão não pode ser usada depois.
func (s *PostgresSession) Close(ctx context.Context) {
	if s.tx != nil {
		s.exit(ctx)
	}
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}

func (s *PostgresSession) enter(ctx context.Context) error {
	if s.conn == nil {
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire connection: %w", err)
		}
		s.conn = conn
	}

	return s.begin(ctx)
}

func (s *PostgresSession) begin(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		s.tx = nil
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			s.tx = nil
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	return nil
}

// exit desfaz a transação corrente. Mudanças já confirmadas por Commit
// permanecem persistidas; todo o resto é descartado.
func (s *PostgresSession) exit(ctx context.Context) {
	if s.tx == nil {
		return
	}
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Printf("⚠️ Failed to rollback on scope exit: %v", err)
	}
	s.tx = nil
}
