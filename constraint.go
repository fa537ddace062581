package tideline

import (
	"fmt"

	"golang.org/x/exp/slices"
)

type ConstraintKind string

const (
	// ConstraintRoot asks for the newest row, to establish an anchor.
	ConstraintRoot ConstraintKind = "root"
	// ConstraintForward asks for rows at or older than the anchor.
	ConstraintForward ConstraintKind = "forward"
	// ConstraintReverse asks for rows strictly newer than the anchor, nearest first.
	ConstraintReverse ConstraintKind = "reverse"
)

// Constraint describes one window a row source is asked for. A source that
// applies the constraint itself must read it through any accessor below, or
// call Ack. A source that ignores it must return every candidate row, and the
// window is then emulated in memory.
//
// Constraints are created per retrieval and are not safe for concurrent use.
type Constraint struct {
	anchor    Anchor
	consulted bool
	filter    *FilterClause
	kind      ConstraintKind
	limit     int
	natural   Orderings
	offset    int
	orderings Orderings
}

func RootConstraint(orderings Orderings) *Constraint {
	return &Constraint{
		kind:      ConstraintRoot,
		limit:     1,
		natural:   orderings,
		orderings: orderings,
	}
}

func ForwardConstraint(orderings Orderings, anchor Anchor, offset int, limit int) *Constraint {
	primary := orderings.Primary()
	operator := "<="
	if primary.Direction == SortAscending {
		operator = ">="
	}
	filter := Q(primary.Column, operator, anchor.Value())
	return &Constraint{
		anchor:    anchor,
		filter:    &filter,
		kind:      ConstraintForward,
		limit:     limit,
		natural:   orderings,
		offset:    offset,
		orderings: orderings,
	}
}

func ReverseConstraint(orderings Orderings, anchor Anchor, lookahead int) *Constraint {
	primary := orderings.Primary()
	operator := ">"
	if primary.Direction == SortAscending {
		operator = "<"
	}
	filter := Q(primary.Column, operator, anchor.Value())
	return &Constraint{
		anchor:    anchor,
		filter:    &filter,
		kind:      ConstraintReverse,
		limit:     lookahead,
		natural:   orderings,
		orderings: orderings.Flip(),
	}
}

// Ack marks the constraint as applied by the source.
func (constraint *Constraint) Ack() {
	constraint.consulted = true
}

func (constraint *Constraint) Anchor() Anchor {
	constraint.consulted = true
	return constraint.anchor
}

// Clauses renders the constraint for a dialect. Params are the caller's own
// bound values that precede the constraint's placeholders.
func (constraint *Constraint) Clauses(dialect Dialect, params ...any) (Clauses, error) {
	constraint.consulted = true
	return detectDialect(dialect).BuildClauses(constraint.queryConfig(nil, params))
}

func (constraint *Constraint) Consulted() bool {
	return constraint.consulted
}

// Filter returns the anchor predicate. Root constraints have none.
func (constraint *Constraint) Filter() (FilterClause, bool) {
	constraint.consulted = true
	if constraint.filter == nil {
		return FilterClause{}, false
	}
	return *constraint.filter, true
}

func (constraint *Constraint) Kind() ConstraintKind {
	return constraint.kind
}

func (constraint *Constraint) Limit() int {
	constraint.consulted = true
	return constraint.limit
}

func (constraint *Constraint) Offset() int {
	constraint.consulted = true
	return constraint.offset
}

// Orderings returns the chain the source must sort by. It is the request chain
// flipped for reverse constraints.
func (constraint *Constraint) Orderings() Orderings {
	constraint.consulted = true
	return append(Orderings(nil), constraint.orderings...)
}

// Select renders a complete SELECT for a table, with the base filters ANDed
// ahead of the anchor predicate. Base filters containing rules are
// parenthesized first.
func (constraint *Constraint) Select(dialect Dialect, table string, filters ...FilterClause) (string, []any, error) {
	constraint.consulted = true
	config := constraint.queryConfig(filters, nil)
	config.Table = table
	return detectDialect(dialect).BuildSelect(config)
}

func (constraint *Constraint) String() string {
	if constraint.filter == nil {
		return fmt.Sprintf("%s(sort=%s offset=%d limit=%d)", constraint.kind, constraint.orderings, constraint.offset, constraint.limit)
	}
	return fmt.Sprintf("%s(%s %s %s sort=%s offset=%d limit=%d)", constraint.kind, constraint.filter.Column, constraint.filter.Operator, constraint.anchor, constraint.orderings, constraint.offset, constraint.limit)
}

func (constraint *Constraint) queryConfig(filters []FilterClause, params []any) QueryConfig {
	all := append([]FilterClause(nil), filters...)
	if constraint.filter != nil {
		if len(filters) > 1 && slices.ContainsFunc(filters, func(filter FilterClause) bool { return filter.Rule != "" }) {
			// Base filters joined by rules are grouped so OR cannot reach past the anchor predicate.
			all = append([]FilterClause{{Rule: "("}}, all...)
			all = append(all, FilterClause{Rule: ")"})
		}
		all = append(all, *constraint.filter)
	}
	return QueryConfig{
		Filters: all,
		Limit:   constraint.limit,
		Offset:  constraint.offset,
		Params:  append([]any(nil), params...),
		Sort:    constraint.orderings,
	}
}
