package tideline

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// Paginator resolves anchor-relative pages against a row source. It holds no
// per-request state and may be shared between goroutines.
type Paginator[T any] struct {
	Config Config
	Field  FieldFunc[T]
	Source RowSource[T]
}

func Paginate[T any](source RowSource[T]) *Paginator[T] {
	return PaginateWith[T](source, Config{})
}

func PaginateWith[T any](source RowSource[T], config Config) *Paginator[T] {
	return &Paginator[T]{
		Config: config,
		Field:  DefaultField[T](),
		Source: source,
	}
}

// WithField overrides how column values are read from rows.
func (paginator *Paginator[T]) WithField(field FieldFunc[T]) *Paginator[T] {
	paginator.Field = field
	return paginator
}

func (paginator *Paginator[T]) Resolve(ctx context.Context, request PageRequest) *PageStreamer[T] {
	result := &PageStreamer[T]{}
	result.Value, result.Error = paginator.resolve(ctx, request)
	return result
}

// resolution carries the working state of one Resolve call.
type resolution[T any] struct {
	adapter        *sourceAdapter[T]
	anchor         Anchor
	clientAnchored bool
	countNewLimit  int
	logger         zerolog.Logger
	orderings      Orderings
	request        PageRequest
}

func (paginator *Paginator[T]) resolve(ctx context.Context, request PageRequest) (*PageResult[T], error) {
	orderings, err := paginator.validate(request)
	if err != nil {
		return nil, err
	}

	if paginator.Source == nil {
		return nil, DataSourceError{Err: fmt.Errorf("no row source configured")}
	}
	field := paginator.Field
	if field == nil {
		field = DefaultField[T]()
	}

	logger := paginator.Config.Logger.With().
		Str("sort", orderings.String()).
		Int("offset", request.Offset).
		Int("limit", request.Limit).
		Str("anchor", request.Anchor.String()).
		Logger()

	r := &resolution[T]{
		adapter:        newSourceAdapter(paginator.Source, field, orderings, paginator.Config, logger),
		anchor:         request.Anchor,
		clientAnchored: !request.Anchor.IsNull(),
		countNewLimit:  request.CountNewLimit,
		logger:         logger,
		orderings:      orderings,
		request:        request,
	}
	if r.countNewLimit == 0 {
		r.countNewLimit = request.Limit
	}

	// A negative offset without an anchor is a page load: there is nothing
	// newer than an undefined anchor.
	if !r.clientAnchored && r.request.Offset < 0 {
		r.request.Offset = 0
	}

	if !r.clientAnchored {
		logger.Debug().Msg("resolving anchor")
		r.anchor, err = resolveAnchor(ctx, r.adapter, orderings)
		if err != nil {
			return nil, err
		}
		if r.anchor.IsNull() {
			logger.Debug().Msg("row source is empty")
			return EmptyResult[T](), nil
		}
	}

	var result *PageResult[T]
	if r.request.Offset < 0 {
		logger.Debug().Str("resolved_anchor", r.anchor.String()).Msg("loading newer rows")
		result, err = r.reverse(ctx)
	} else {
		logger.Debug().Str("resolved_anchor", r.anchor.String()).Msg("loading older rows")
		result, err = r.forward(ctx)
	}
	if err != nil {
		return nil, err
	}

	if r.clientAnchored && len(result.Nodes) == 0 && !result.Info.HasNew && !result.Info.HasMore {
		roots, err := r.adapter.retrieve(ctx, RootConstraint(orderings))
		if err != nil {
			return nil, err
		}
		if len(roots) == 0 {
			logger.Debug().Msg("row source is empty")
			return EmptyResult[T](), nil
		}
	}

	logger.Debug().
		Int("nodes", len(result.Nodes)).
		Bool("has_more", result.Info.HasMore).
		Int("count_new", result.Info.CountNew).
		Int("retrievals", r.adapter.retrievals).
		Msg("page resolved")
	return result, nil
}

func (paginator *Paginator[T]) validate(request PageRequest) (Orderings, error) {
	orderings, err := request.Orderings.Validate()
	if err != nil {
		return nil, err
	}
	if request.Limit <= 0 {
		return nil, ValidationError{Message: "limit must be positive"}
	}
	if request.CountLoaded < 0 {
		return nil, ValidationError{Message: "countLoaded must not be negative"}
	}
	if request.CountNewLimit < 0 {
		return nil, ValidationError{Message: "countNewLimit must not be negative"}
	}
	if paginator.Config.MaxLimit > 0 && request.Limit > paginator.Config.MaxLimit {
		return nil, ValidationError{Message: fmt.Sprintf("limit must not exceed %d", paginator.Config.MaxLimit)}
	}
	if paginator.Config.MaxCountNewLimit > 0 && request.CountNewLimit > paginator.Config.MaxCountNewLimit {
		return nil, ValidationError{Message: fmt.Sprintf("countNewLimit must not exceed %d", paginator.Config.MaxCountNewLimit)}
	}
	return orderings, nil
}

// forward serves a page at or older than the anchor. The anchor is unchanged.
func (r *resolution[T]) forward(ctx context.Context) (*PageResult[T], error) {
	nodes, err := r.adapter.retrieve(ctx, ForwardConstraint(r.orderings, r.anchor, r.request.Offset, r.request.Limit))
	if err != nil {
		return nil, err
	}

	newer, err := r.adapter.retrieve(ctx, ReverseConstraint(r.orderings, r.anchor, r.countNewLimit))
	if err != nil {
		return nil, err
	}

	hasMore, moreOffset, err := r.probe(ctx, len(nodes))
	if err != nil {
		return nil, err
	}

	return &PageResult[T]{
		Info: PageInfo{
			CountNew:   len(newer),
			HasMore:    hasMore,
			HasNew:     len(newer) > 0,
			MoreOffset: moreOffset,
			NextAnchor: r.anchor,
		},
		Nodes: nonNil(nodes),
	}, nil
}

// reverse serves rows newer than the anchor in natural order, and moves the
// anchor to the newest row served.
func (r *resolution[T]) reverse(ctx context.Context) (*PageResult[T], error) {
	window, err := r.adapter.retrieve(ctx, ReverseConstraint(r.orderings, r.anchor, max(r.countNewLimit, r.request.Limit)))
	if err != nil {
		return nil, err
	}
	window = slices.Clone(window)
	slices.Reverse(window)

	total := len(window)
	windowStart := max(total+r.request.Offset, 0)
	windowEnd := min(windowStart+r.request.Limit, total)
	nodes := window[windowStart:windowEnd]

	nextAnchor := r.anchor
	if len(nodes) > 0 {
		nextAnchor, err = r.adapter.anchorOf(nodes[0])
		if err != nil {
			return nil, err
		}
	}

	newer, err := r.adapter.retrieve(ctx, ReverseConstraint(r.orderings, nextAnchor, r.countNewLimit))
	if err != nil {
		return nil, err
	}

	hasMore, moreOffset, err := r.probe(ctx, len(nodes))
	if err != nil {
		return nil, err
	}

	return &PageResult[T]{
		Info: PageInfo{
			CountNew: len(newer),
			HasMore:  hasMore,
			HasNew:   len(newer) > 0,
			// The probe offset is relative to the old anchor; the served rows
			// now sit between it and the new one.
			MoreOffset: moreOffset + len(nodes),
			NextAnchor: nextAnchor,
		},
		Nodes: nonNil(nodes),
	}, nil
}

// probe reports whether a row exists past everything the client will hold
// after this page, and the offset of that row relative to the resolved anchor.
func (r *resolution[T]) probe(ctx context.Context, found int) (bool, int, error) {
	countLoaded := 0
	if r.clientAnchored {
		countLoaded = r.request.CountLoaded
	}

	currentOffsetLast := countLoaded - 1
	nextOffsetLast := r.request.Offset + found - 1
	nextCountLoaded := countLoaded + max(nextOffsetLast-currentOffsetLast, 0)

	more, err := r.adapter.retrieve(ctx, ForwardConstraint(r.orderings, r.anchor, nextCountLoaded, 1))
	if err != nil {
		return false, 0, err
	}
	return len(more) > 0, nextCountLoaded, nil
}

func nonNil[T any](nodes []T) []T {
	if nodes == nil {
		return make([]T, 0)
	}
	return nodes
}
