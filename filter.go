package tideline

import (
	"fmt"
	"strings"
)

var FilterOperators = map[string]string{
	"eq":     "=",
	"in":     "IN",
	"is":     "IS",
	"is_not": "IS NOT",
	"lt":     "<",
	"lte":    "<=",
	"not":    "!=",
	"not_in": "NOT IN",
	"gt":     ">",
	"gte":    ">=",
}

// FilterClause is one predicate, or a bare boolean rule ("AND", "OR") joining two predicates.
type FilterClause struct {
	Column   string
	Operator string
	Rule     string
	Value    any
}

func (clause FilterClause) StringWithArgs(dialect Dialect, args []any) (string, []any, error) {
	if clause.Rule != "" {
		switch clause.Rule {
		case "AND", "OR", "NOT", "(", ")":
			return " " + clause.Rule, args, nil
		default:
			return "", nil, fmt.Errorf("tideline: invalid filter rule '%s'", clause.Rule)
		}
	}

	if !validOperator(clause.Operator) {
		return "", nil, fmt.Errorf("tideline: invalid filter operator '%s'", clause.Operator)
	}

	var queryPart strings.Builder
	queryPart.WriteString(" ")
	queryPart.WriteString(dialect.QuoteIdentifier(clause.Column))
	queryPart.WriteString(" ")
	queryPart.WriteString(clause.Operator)
	queryPart.WriteString(" ")

	switch clause.Operator {
	case "IN", "NOT IN":
		values, ok := clause.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("tideline: operator '%s' on column '%s' requires a non-empty []any", clause.Operator, clause.Column)
		}
		queryPart.WriteString("(")
		for i, value := range values {
			if i > 0 {
				queryPart.WriteString(",")
			}
			args = append(args, value)
			queryPart.WriteString(dialect.Param(len(args)))
		}
		queryPart.WriteString(")")

	case "IS", "IS NOT":
		switch clause.Value {
		case nil:
			queryPart.WriteString("NULL")
		case true:
			queryPart.WriteString("TRUE")
		case false:
			queryPart.WriteString("FALSE")
		default:
			return "", nil, fmt.Errorf("tideline: operator '%s' on column '%s' requires nil or a bool", clause.Operator, clause.Column)
		}

	default:
		args = append(args, clause.Value)
		queryPart.WriteString(dialect.Param(len(args)))
	}

	return queryPart.String(), args, nil
}

func validOperator(operator string) bool {
	for _, known := range FilterOperators {
		if known == operator {
			return true
		}
	}
	return false
}

// Q builds a predicate, e.g. Q("user_id", "=", 7).
func Q(column string, operator string, value any) FilterClause {
	return FilterClause{
		Column:   column,
		Operator: operator,
		Value:    value,
	}
}

// BuildFilters renders AND-joined predicates without the WHERE keyword. An AND
// is implied between adjacent operands, a closed group counting as one.
func BuildFilters(dialect Dialect, filters []FilterClause, args []any) (string, []any, error) {
	var queryPart strings.Builder
	for i, filter := range filters {
		if i > 0 && endsOperand(filters[i-1]) && startsOperand(filter) {
			queryPart.WriteString(" AND")
		}
		part, partArgs, err := filter.StringWithArgs(dialect, args)
		if err != nil {
			return "", nil, err
		}
		args = partArgs
		queryPart.WriteString(part)
	}
	return strings.TrimPrefix(queryPart.String(), " "), args, nil
}

func endsOperand(filter FilterClause) bool {
	return filter.Rule == "" || filter.Rule == ")"
}

func startsOperand(filter FilterClause) bool {
	return filter.Rule == "" || filter.Rule == "(" || filter.Rule == "NOT"
}
