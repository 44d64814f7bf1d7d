package cube

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/cubetab/internal/olap"
	"github.com/jackc/pgx/v5"
)

// DBTX is the query subset of *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

// Executor runs a data access and returns its multidimensional result.
type Executor interface {
	Execute(ctx context.Context, c Cube, da DataAccess, params map[string]string) (olap.Result, error)
}

// SQLExecutor executes data accesses against PostgreSQL.
type SQLExecutor struct {
	DB DBTX
}

// NewSQLExecutor returns an executor backed by db.
func NewSQLExecutor(db DBTX) *SQLExecutor {
	return &SQLExecutor{DB: db}
}

// Execute implements Executor.
func (e *SQLExecutor) Execute(ctx context.Context, c Cube, da DataAccess, params map[string]string) (olap.Result, error) {
	q, err := BuildQuery(c, da, params)
	if err != nil {
		return nil, err
	}

	rows, err := e.DB.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", da.ID, err)
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]any, error) {
		return row.Values()
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", da.ID, err)
	}

	result, err := BuildResult(c, da, values)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", da.ID, err)
	}
	return result, nil
}
