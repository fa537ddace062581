package tideline

import (
	"fmt"
	"strings"
)

type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// Flip returns the opposite direction.
func (direction SortDirection) Flip() SortDirection {
	if direction == SortDescending {
		return SortAscending
	}
	return SortDescending
}

type Ordering struct {
	Column    string        `json:"index" yaml:"index"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

func (ordering Ordering) Flip() Ordering {
	return Ordering{Column: ordering.Column, Direction: ordering.Direction.Flip()}
}

func (ordering Ordering) String() string {
	if ordering.Direction == SortDescending {
		return "-" + ordering.Column
	}
	return ordering.Column
}

// Orderings is an ordering chain. The first entry is the primary ordering and
// later entries break ties.
type Orderings []Ordering

func (orderings Orderings) Flip() Orderings {
	flipped := make(Orderings, len(orderings))
	for i, ordering := range orderings {
		flipped[i] = ordering.Flip()
	}
	return flipped
}

func (orderings Orderings) Primary() Ordering {
	return orderings[0]
}

// Validate returns a normalized copy of the chain. Directions are matched
// case-insensitively.
func (orderings Orderings) Validate() (Orderings, error) {
	if len(orderings) == 0 {
		return nil, ValidationError{Message: "there must be at least one ordering"}
	}
	normalized := make(Orderings, len(orderings))
	for i, ordering := range orderings {
		if ordering.Column == "" {
			return nil, ValidationError{Message: fmt.Sprintf("ordering %d has no column", i)}
		}
		switch SortDirection(strings.ToUpper(string(ordering.Direction))) {
		case SortAscending:
			normalized[i] = Ordering{Column: ordering.Column, Direction: SortAscending}
		case SortDescending:
			normalized[i] = Ordering{Column: ordering.Column, Direction: SortDescending}
		default:
			return nil, ValidationError{Message: fmt.Sprintf("invalid direction '%s' for column '%s'", ordering.Direction, ordering.Column)}
		}
	}
	return normalized, nil
}

func (orderings Orderings) String() string {
	parts := make([]string, len(orderings))
	for i, ordering := range orderings {
		parts[i] = ordering.String()
	}
	return strings.Join(parts, ",")
}

// ParseOrderings builds a chain from sort columns, where a leading '-' means descending.
//
//	ParseOrderings("-date_created", "-id")
func ParseOrderings(columns ...string) Orderings {
	orderings := make(Orderings, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		if name, desc := strings.CutPrefix(column, "-"); desc {
			orderings = append(orderings, Ordering{Column: name, Direction: SortDescending})
		} else {
			orderings = append(orderings, Ordering{Column: column, Direction: SortAscending})
		}
	}
	return orderings
}
