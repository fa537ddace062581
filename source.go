package tideline

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// RowSource retrieves rows for a constraint. It either applies the constraint
// (and reads it, marking it consulted) or ignores it and returns every
// candidate row. It must return an error rather than partial data on failure.
type RowSource[T any] interface {
	Retrieve(ctx context.Context, constraint *Constraint) ([]T, error)
}

// RetrieveFunc adapts a function to a RowSource.
type RetrieveFunc[T any] func(ctx context.Context, constraint *Constraint) ([]T, error)

func (retrieve RetrieveFunc[T]) Retrieve(ctx context.Context, constraint *Constraint) ([]T, error) {
	return retrieve(ctx, constraint)
}

// sourceAdapter is owned by exactly one resolution. Once a source ignores a
// constraint, the full row set it returned is sorted and every later window is
// cut from it in memory.
type sourceAdapter[T any] struct {
	anchorMiss AnchorMissPolicy
	field      FieldFunc[T]
	logger     zerolog.Logger
	memo       []T
	memoized   bool
	orderings  Orderings
	retrievals int
	source     RowSource[T]
}

func newSourceAdapter[T any](source RowSource[T], field FieldFunc[T], orderings Orderings, config Config, logger zerolog.Logger) *sourceAdapter[T] {
	return &sourceAdapter[T]{
		anchorMiss: config.AnchorMiss,
		field:      field,
		logger:     logger,
		orderings:  orderings,
		source:     source,
	}
}

func (adapter *sourceAdapter[T]) retrieve(ctx context.Context, constraint *Constraint) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, DataSourceError{Err: err}
	}
	if adapter.memoized {
		return adapter.emulate(constraint)
	}

	rows, err := adapter.source.Retrieve(ctx, constraint)
	adapter.retrievals++
	if err != nil {
		return nil, DataSourceError{Err: err}
	}

	if constraint.Consulted() {
		adapter.logger.Debug().
			Stringer("constraint", constraint).
			Int("rows", len(rows)).
			Msg("source applied constraint")
		return rows, nil
	}

	adapter.logger.Debug().
		Stringer("constraint", constraint).
		Int("rows", len(rows)).
		Msg("source ignored constraint, emulating")
	adapter.memo, err = adapter.sort(slices.Clone(rows))
	if err != nil {
		return nil, err
	}
	adapter.memoized = true
	return adapter.emulate(constraint)
}

func (adapter *sourceAdapter[T]) anchorOf(row T) (Anchor, error) {
	column := adapter.orderings.Primary().Column
	value, ok := adapter.field(row, column)
	if !ok {
		return NullAnchor, DataError{Column: column}
	}
	anchor := AnchorOf(value)
	if anchor.IsNull() {
		return NullAnchor, DataError{Column: column}
	}
	return anchor, nil
}

// compare orders two rows by the full ordering chain.
func (adapter *sourceAdapter[T]) compare(a T, b T) (int, error) {
	for _, ordering := range adapter.orderings {
		av, _ := adapter.field(a, ordering.Column)
		bv, _ := adapter.field(b, ordering.Column)
		cmp, ok := compareValues(av, bv)
		if !ok {
			return 0, DataError{Column: ordering.Column, Message: "values cannot be ordered"}
		}
		if cmp != 0 {
			if ordering.Direction == SortDescending {
				return -cmp, nil
			}
			return cmp, nil
		}
	}
	return 0, nil
}

func (adapter *sourceAdapter[T]) sort(rows []T) ([]T, error) {
	var sortErr error
	slices.SortStableFunc(rows, func(a, b T) bool {
		cmp, err := adapter.compare(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return cmp < 0
	})
	return rows, sortErr
}
