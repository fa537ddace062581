package tideline

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// SqlSource is a RowSource that renders each constraint into a SELECT on one
// table. T is map[string]any or a struct tagged with `@:"column"`.
type SqlSource[T any] struct {
	DB          *sql.DB
	Dialect     Dialect
	Filters     []FilterClause
	Naive       bool
	Table       string
	Transaction *sql.Tx

	weave *Weave[T]
}

// Source builds a SqlSource. When table is empty the weave's table is used.
func Source[T any](db *sql.DB, table string) *SqlSource[T] {
	weave := Use[T]()
	if table == "" {
		table = weave.Table
	}
	return &SqlSource[T]{
		DB:    db,
		Table: table,
		weave: weave,
	}
}

// Filter narrows the candidate rows, e.g. to one user's feed. Filters are
// applied even when Naive is set.
func (source *SqlSource[T]) Filter(column string, operator string, value any) *SqlSource[T] {
	source.Filters = append(source.Filters, Q(column, operator, value))
	return source
}

// Ignoring makes the source select every candidate row without reading
// constraints, leaving windowing to in-memory emulation.
func (source *SqlSource[T]) Ignoring() *SqlSource[T] {
	source.Naive = true
	return source
}

func (source *SqlSource[T]) Retrieve(ctx context.Context, constraint *Constraint) ([]T, error) {
	dialect := detectDialect(source.Dialect)

	var queryString string
	var args []any
	var err error
	if source.Naive {
		queryString, args, err = dialect.BuildSelect(QueryConfig{
			Filters: source.Filters,
			Table:   source.Table,
		})
	} else {
		queryString, args, err = constraint.Select(dialect, source.Table, source.Filters...)
	}
	if err != nil {
		return nil, err
	}

	rows, err := source.dbQuery(ctx, queryString, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "tideline: query on table '%s'", source.Table)
	}
	return source.slice(ctx, rows)
}

func (source *SqlSource[T]) dbQuery(ctx context.Context, queryString string, args ...any) (*sql.Rows, error) {
	if source.Transaction != nil {
		return source.Transaction.QueryContext(ctx, queryString, args...)
	}
	if source.DB == nil {
		return nil, errors.New("tideline: missing database connection")
	}
	return source.DB.QueryContext(ctx, queryString, args...)
}

func (source *SqlSource[T]) slice(ctx context.Context, rows *sql.Rows) ([]T, error) {
	defer rows.Close()

	weave := source.weave
	if weave == nil {
		weave = Use[T]()
	}

	values := make([]T, 0)
	for rows.Next() {
		data, err := ScanFieldsToMap(rows, weave.Fields)
		if err != nil {
			return nil, errors.Wrap(err, "tideline: scan")
		}
		if row, ok := any(data).(T); ok {
			values = append(values, row)
			continue
		}
		row, err := weave.ScanMap(data)
		if err != nil {
			return nil, err
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tideline: rows")
	}

	select {
	default:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return values, nil
}
