package mysqldialect

import (
	"fmt"
	"strings"

	"github.com/evantbyrne/tideline"
)

type MysqlDialect struct{}

// BuildClauses renders MySQL fragments. MySQL takes the offset inside LIMIT, so
// Limit is "?, ?" (offset, limit) and Offset stays empty.
func (dialect MysqlDialect) BuildClauses(config tideline.QueryConfig) (tideline.Clauses, error) {
	args := append([]any(nil), config.Params...)
	var clauses tideline.Clauses

	// WHERE
	where, args, err := tideline.BuildFilters(dialect, config.Filters, args)
	if err != nil {
		return tideline.Clauses{}, err
	}
	clauses.Where = where

	// ORDER BY
	clauses.OrderBy = tideline.BuildOrderBy(dialect, config.Sort)

	// LIMIT
	if config.Limit != nil {
		if config.Offset != nil {
			args = append(args, config.Offset, config.Limit)
			clauses.Limit = "?, ?"
		} else {
			args = append(args, config.Limit)
			clauses.Limit = "?"
		}
	} else if config.Offset != nil {
		return tideline.Clauses{}, fmt.Errorf("tideline: MySQL does not support OFFSET without LIMIT")
	}

	clauses.Args = args
	return clauses, nil
}

func (dialect MysqlDialect) BuildSelect(config tideline.QueryConfig) (string, []any, error) {
	clauses, err := dialect.BuildClauses(config)
	if err != nil {
		return "", nil, err
	}
	if config.Table == "" {
		return "", nil, fmt.Errorf("tideline: SELECT requires a table")
	}

	var queryString strings.Builder
	queryString.WriteString("SELECT ")
	if len(config.Selected) > 0 {
		for i, column := range config.Selected {
			if i > 0 {
				queryString.WriteString(",")
			}
			queryString.WriteString(dialect.QuoteIdentifier(column))
		}
	} else {
		queryString.WriteString("*")
	}
	queryString.WriteString(" FROM ")
	queryString.WriteString(dialect.QuoteIdentifier(config.Table))
	queryString.WriteString(clauses.SQL())
	return queryString.String(), clauses.Args, nil
}

func (dialect MysqlDialect) Param(i int) string {
	return "?"
}

func (dialect MysqlDialect) QuoteIdentifier(identifier string) string {
	var query strings.Builder
	for i, part := range strings.Split(identifier, ".") {
		if i > 0 {
			query.WriteString(".")
		}
		query.WriteString(QuoteIdentifier(part))
	}
	return query.String()
}

// QuoteIdentifier wraps one identifier part in backticks, doubling any backtick inside it.
func QuoteIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}
