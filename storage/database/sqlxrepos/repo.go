// Package sqlxrepos implements the core repositories on top of sqlx. Queries are written with `?` placeholders and
// rebound for the engine in use.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/dismod47/GroupChatProject/core"
)

type repository struct {
	db core.DBExecutor
}

// getExec returns the transaction passed by the caller, if any, or the repository's pool.
func (repo repository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return repo.db
}

func execAffected(ctx context.Context, e core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := e.ExecContext(ctx, e.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func getContext(ctx context.Context, e core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, e, dest, e.Rebind(query), args...)
}

func selectContext(ctx context.Context, e core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, e, dest, e.Rebind(query), args...)
}

// selectIn expands slice arguments into `IN (?)` lists before selecting.
func selectIn(ctx context.Context, e core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return selectContext(ctx, e, dest, q, args...)
}

func execIn(ctx context.Context, e core.DBExecutor, query string, args ...interface{}) (int64, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, e, q, args...)
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}

func namedExec(ctx context.Context, e core.DBExecutor, query string, arg interface{}) (int64, error) {
	q, args, err := e.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}
	res, err := e.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
