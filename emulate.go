package tideline

import (
	"fmt"
	"slices"
)

type AnchorMissPolicy string

const (
	// AnchorMissNewest treats an anchor that matches no row as the newest row.
	AnchorMissNewest AnchorMissPolicy = "newest"
	// AnchorMissNearest positions an unmatched anchor where its value would
	// sort, as a database applying the predicate would.
	AnchorMissNearest AnchorMissPolicy = "nearest"
	// AnchorMissError fails the resolution with a DataError.
	AnchorMissError AnchorMissPolicy = "error"
)

// emulate cuts the window a cooperative source would have returned for the
// constraint out of the memoized, naturally sorted row set.
func (adapter *sourceAdapter[T]) emulate(constraint *Constraint) ([]T, error) {
	anchorIndex, err := adapter.anchorIndex(constraint.anchor)
	if err != nil {
		return nil, err
	}

	switch constraint.kind {
	case ConstraintForward:
		start := anchorIndex + constraint.offset
		return adapter.window(start, start+constraint.limit), nil

	case ConstraintReverse:
		nodes := adapter.window(max(anchorIndex-constraint.limit, 0), anchorIndex)
		slices.Reverse(nodes)
		return nodes, nil

	case ConstraintRoot:
		return adapter.window(anchorIndex, anchorIndex+1), nil

	default:
		return nil, fmt.Errorf("tideline: unknown constraint kind '%s'", constraint.kind)
	}
}

func (adapter *sourceAdapter[T]) anchorIndex(anchor Anchor) (int, error) {
	if anchor.IsNull() {
		return 0, nil
	}
	primary := adapter.orderings.Primary()

	if adapter.anchorMiss == AnchorMissNearest {
		// First row that is not strictly newer than the anchor.
		for i, row := range adapter.memo {
			value, _ := adapter.field(row, primary.Column)
			cmp, ok := compareValues(value, anchor.Value())
			if !ok {
				return 0, DataError{Column: primary.Column, Message: "values cannot be ordered"}
			}
			if primary.Direction == SortDescending && cmp <= 0 || primary.Direction == SortAscending && cmp >= 0 {
				return i, nil
			}
		}
		return len(adapter.memo), nil
	}

	for i, row := range adapter.memo {
		if value, ok := adapter.field(row, primary.Column); ok && anchor.Equal(value) {
			return i, nil
		}
	}
	if adapter.anchorMiss == AnchorMissError && len(adapter.memo) > 0 {
		return 0, DataError{Column: primary.Column, Message: fmt.Sprintf("anchor %s matches no row", anchor)}
	}
	return 0, nil
}

// window copies memo[start:end], clamped to the row set.
func (adapter *sourceAdapter[T]) window(start int, end int) []T {
	start = min(max(start, 0), len(adapter.memo))
	end = min(max(end, start), len(adapter.memo))
	return slices.Clone(adapter.memo[start:end])
}
