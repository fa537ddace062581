package sqlitedialect

import (
	"fmt"
	"strings"

	"github.com/evantbyrne/tideline"
)

type SqliteDialect struct{}

func (dialect SqliteDialect) BuildClauses(config tideline.QueryConfig) (tideline.Clauses, error) {
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
		args = append(args, config.Limit)
		clauses.Limit = dialect.Param(len(args))
	} else if config.Offset != nil {
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		clauses.Limit = "-1"
	}

	// OFFSET
	if config.Offset != nil {
		args = append(args, config.Offset)
		clauses.Offset = dialect.Param(len(args))
	}

	clauses.Args = args
	return clauses, nil
}

func (dialect SqliteDialect) BuildSelect(config tideline.QueryConfig) (string, []any, error) {
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

func (dialect SqliteDialect) Param(i int) string {
	return "?"
}

func (dialect SqliteDialect) QuoteIdentifier(identifier string) string {
	var query strings.Builder
	for i, part := range strings.Split(identifier, ".") {
		if i > 0 {
			query.WriteString(".")
		}
		query.WriteString(QuoteIdentifier(part))
	}
	return query.String()
}

func QuoteIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}
