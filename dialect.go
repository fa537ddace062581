package tideline

import (
	"strings"
)

// Dialect renders constraints for one SQL flavour. Values are always bound
// parameters; identifiers are quoted by the dialect.
type Dialect interface {
	BuildClauses(QueryConfig) (Clauses, error)
	BuildSelect(QueryConfig) (string, []any, error)
	Param(i int) string
	QuoteIdentifier(string) string
}

type QueryConfig struct {
	Filters  []FilterClause
	Limit    any
	Offset   any
	Params   []any
	Selected []string
	Sort     Orderings
	Table    string
}

// Clauses are the dialect encoding of a constraint: keyword-less fragments
// meant to be placed after WHERE, ORDER BY, LIMIT and OFFSET respectively.
// Args holds the bound values in placeholder order, after any caller Params.
type Clauses struct {
	Args    []any
	Limit   string
	Offset  string
	OrderBy string
	Where   string
}

// SQL joins the non-empty fragments with their keywords.
func (clauses Clauses) SQL() string {
	var queryPart strings.Builder
	if clauses.Where != "" {
		queryPart.WriteString(" WHERE ")
		queryPart.WriteString(clauses.Where)
	}
	if clauses.OrderBy != "" {
		queryPart.WriteString(" ORDER BY ")
		queryPart.WriteString(clauses.OrderBy)
	}
	if clauses.Limit != "" {
		queryPart.WriteString(" LIMIT ")
		queryPart.WriteString(clauses.Limit)
	}
	if clauses.Offset != "" {
		queryPart.WriteString(" OFFSET ")
		queryPart.WriteString(clauses.Offset)
	}
	return queryPart.String()
}

// BuildOrderBy renders an ordering chain without the ORDER BY keyword.
func BuildOrderBy(dialect Dialect, orderings Orderings) string {
	var queryPart strings.Builder
	for i, ordering := range orderings {
		if i > 0 {
			queryPart.WriteString(", ")
		}
		queryPart.WriteString(dialect.QuoteIdentifier(ordering.Column))
		if ordering.Direction == SortDescending {
			queryPart.WriteString(" DESC")
		} else {
			queryPart.WriteString(" ASC")
		}
	}
	return queryPart.String()
}

var defaultDialect Dialect

func SetDialect(dialect Dialect) {
	defaultDialect = dialect
}

func detectDialect(dialect Dialect) Dialect {
	if dialect != nil {
		return dialect
	}
	if defaultDialect == nil {
		panic("tideline: no dialect registered. Use tideline.SetDialect(dialect tideline.Dialect) to register a default for SQL queries")
	}
	return defaultDialect
}
