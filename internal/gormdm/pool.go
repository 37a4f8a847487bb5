package gormdm

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/johndauphine/go-dm/internal/rewrite"
)

// rewriter applies rewrite rules to every statement before it reaches pool.
type rewriter struct {
	pool  gorm.ConnPool
	rules rewrite.Rules
}

func (r rewriter) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return r.pool.PrepareContext(ctx, r.rules.Apply(query))
}

func (r rewriter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.pool.ExecContext(ctx, r.rules.Apply(query), args...)
}

func (r rewriter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.pool.QueryContext(ctx, r.rules.Apply(query), args...)
}

func (r rewriter) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.pool.QueryRowContext(ctx, r.rules.Apply(query), args...)
}

// ConnPool wraps a gorm.ConnPool so its statements pass through rules.
type ConnPool struct {
	rewriter
}

// NewConnPool wraps pool.
func NewConnPool(pool gorm.ConnPool, rules rewrite.Rules) *ConnPool {
	return &ConnPool{rewriter{pool: pool, rules: rules}}
}

// BeginTx starts a transaction whose statements are rewritten too.
func (p *ConnPool) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	switch b := p.pool.(type) {
	case gorm.TxBeginner:
		tx, err := b.BeginTx(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &Tx{rewriter{pool: tx, rules: p.rules}}, nil
	case gorm.ConnPoolBeginner:
		tx, err := b.BeginTx(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &Tx{rewriter{pool: tx, rules: p.rules}}, nil
	default:
		return nil, gorm.ErrInvalidTransaction
	}
}

// GetDBConn returns the underlying *sql.DB so gorm's DB() works.
func (p *ConnPool) GetDBConn() (*sql.DB, error) {
	switch c := p.pool.(type) {
	case *sql.DB:
		return c, nil
	case gorm.GetDBConnector:
		return c.GetDBConn()
	}
	return nil, nil
}

// Ping pings the underlying pool when it supports it.
func (p *ConnPool) Ping() error {
	if pinger, ok := p.pool.(interface{ Ping() error }); ok {
		return pinger.Ping()
	}
	return nil
}

// Tx is a transaction started by ConnPool.BeginTx.
type Tx struct {
	rewriter
}

func (t *Tx) Commit() error {
	if c, ok := t.pool.(gorm.TxCommitter); ok {
		return c.Commit()
	}
	return gorm.ErrInvalidTransaction
}

func (t *Tx) Rollback() error {
	if c, ok := t.pool.(gorm.TxCommitter); ok {
		return c.Rollback()
	}
	return gorm.ErrInvalidTransaction
}
