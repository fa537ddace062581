package tideline

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedOrderings = Orderings{
	{Column: "dateCreated", Direction: SortDescending},
	{Column: "id", Direction: SortDescending},
}

// memorySource applies every constraint itself, as a database would.
type memorySource struct {
	calls int
	rows  []map[string]any
}

func (source *memorySource) Retrieve(ctx context.Context, constraint *Constraint) ([]map[string]any, error) {
	source.calls++
	orderings := constraint.Orderings()

	rows := make([]map[string]any, 0, len(source.rows))
	if filter, ok := constraint.Filter(); ok {
		for _, row := range source.rows {
			if matchesFilter(row[filter.Column], filter.Operator, filter.Value) {
				rows = append(rows, row)
			}
		}
	} else {
		rows = append(rows, source.rows...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ordering := range orderings {
			cmp, _ := compareValues(rows[i][ordering.Column], rows[j][ordering.Column])
			if cmp != 0 {
				if ordering.Direction == SortDescending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})

	start := min(constraint.Offset(), len(rows))
	end := min(start+constraint.Limit(), len(rows))
	return rows[start:end], nil
}

func (source *memorySource) insert(ids ...int) {
	for _, id := range ids {
		source.rows = append(source.rows, map[string]any{"id": id, "dateCreated": id})
	}
}

func matchesFilter(value any, operator string, target any) bool {
	cmp, ok := compareValues(value, target)
	if !ok {
		return false
	}
	switch operator {
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	}
	return false
}

// naiveSource ignores constraints and returns every row in insertion order.
type naiveSource struct {
	calls int
	err   error
	rows  []map[string]any
}

func (source *naiveSource) Retrieve(ctx context.Context, constraint *Constraint) ([]map[string]any, error) {
	source.calls++
	if source.err != nil {
		return nil, source.err
	}
	return append([]map[string]any(nil), source.rows...), nil
}

func (source *naiveSource) insert(ids ...int) {
	for _, id := range ids {
		source.rows = append(source.rows, map[string]any{"id": id, "dateCreated": id})
	}
}

func nodeIds(nodes []map[string]any) []int {
	ids := make([]int, len(nodes))
	for i, node := range nodes {
		ids[i] = node["id"].(int)
	}
	return ids
}

type feedStep struct {
	name       string
	insert     []int
	request    PageRequest
	ids        []int
	countNew   int
	hasMore    bool
	moreOffset int
	nextAnchor string
}

func (step feedStep) check(t *testing.T, page *PageResult[map[string]any]) {
	t.Helper()
	assert.Equal(t, step.ids, nodeIds(page.Nodes), step.name)
	assert.Equal(t, step.countNew, page.Info.CountNew, step.name+": countNew")
	assert.Equal(t, step.countNew > 0, page.Info.HasNew, step.name+": hasNew")
	assert.Equal(t, step.hasMore, page.Info.HasMore, step.name+": hasMore")
	assert.Equal(t, step.moreOffset, page.Info.MoreOffset, step.name+": moreOffset")
	assert.Equal(t, step.nextAnchor, page.Info.NextAnchor.String(), step.name+": nextAnchor")
}

func feedSteps() []feedStep {
	request := func(offset int, countLoaded int, countNewLimit int, anchor Anchor) PageRequest {
		return PageRequest{
			Anchor:        anchor,
			CountLoaded:   countLoaded,
			CountNewLimit: countNewLimit,
			Limit:         2,
			Offset:        offset,
			Orderings:     feedOrderings,
		}
	}
	return []feedStep{
		{name: "page load", request: request(0, 0, 0, NullAnchor),
			ids: []int{9, 8}, hasMore: true, moreOffset: 2, nextAnchor: "9"},
		{name: "page load at offset", request: request(4, 0, 0, NullAnchor),
			ids: []int{5, 4}, hasMore: true, moreOffset: 6, nextAnchor: "9"},
		{name: "load more", request: request(2, 2, 0, AnchorOf(9)),
			ids: []int{7, 6}, hasMore: true, moreOffset: 4, nextAnchor: "9"},
		{name: "load more after inserts", insert: []int{10, 11}, request: request(4, 4, 0, AnchorOf(9)),
			ids: []int{5, 4}, countNew: 2, hasMore: true, moreOffset: 6, nextAnchor: "9"},
		{name: "load new", request: request(-2, 6, 0, AnchorOf(9)),
			ids: []int{11, 10}, hasMore: true, moreOffset: 8, nextAnchor: "11"},
		{name: "load more behind new rows", insert: []int{12, 13}, request: request(8, 8, 0, AnchorOf(11)),
			ids: []int{3, 2}, countNew: 2, hasMore: true, moreOffset: 10, nextAnchor: "11"},
		{name: "load new with wider lookahead", insert: []int{14, 15}, request: request(-2, 10, 4, AnchorOf(11)),
			ids: []int{13, 12}, countNew: 2, hasMore: true, moreOffset: 12, nextAnchor: "13"},
		{name: "load last page", request: request(12, 12, 0, AnchorOf(13)),
			ids: []int{1, 0}, countNew: 2, moreOffset: 14, nextAnchor: "13"},
		{name: "load newest", request: request(-2, 14, 4, AnchorOf(13)),
			ids: []int{15, 14}, moreOffset: 16, nextAnchor: "15"},
	}
}

func TestResolveFeedCooperative(t *testing.T) {
	source := &memorySource{}
	source.insert(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	paginator := Paginate[map[string]any](source)

	for _, step := range feedSteps() {
		source.insert(step.insert...)
		page, err := paginator.Resolve(context.Background(), step.request).Collect()
		require.NoError(t, err, step.name)
		step.check(t, page)
	}
}

func TestResolveFeedNaive(t *testing.T) {
	source := &naiveSource{}
	source.insert(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	paginator := Paginate[map[string]any](source)

	for _, step := range feedSteps() {
		source.insert(step.insert...)
		source.calls = 0
		page, err := paginator.Resolve(context.Background(), step.request).Collect()
		require.NoError(t, err, step.name)
		step.check(t, page)
		assert.Equal(t, 1, source.calls, step.name+": source calls")
	}
}

func TestResolveRetrieveFunc(t *testing.T) {
	calls := 0
	rows := []map[string]any{
		{"id": 1, "dateCreated": 1},
		{"id": 2, "dateCreated": 2},
		{"id": 3, "dateCreated": 3},
	}
	paginator := Paginate[map[string]any](RetrieveFunc[map[string]any](func(ctx context.Context, constraint *Constraint) ([]map[string]any, error) {
		calls++
		return rows, nil
	}))

	page, err := paginator.Resolve(context.Background(), PageRequest{Limit: 2, Orderings: feedOrderings}).Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, nodeIds(page.Nodes))
	assert.True(t, page.Info.HasMore)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rows[0]["id"], "source rows must not be reordered")
}

func TestResolveEmptySource(t *testing.T) {
	sources := map[string]RowSource[map[string]any]{
		"cooperative": &memorySource{},
		"naive":       &naiveSource{},
	}
	requests := []PageRequest{
		{Limit: 2, Orderings: feedOrderings},
		{Limit: 2, Offset: 4, Orderings: feedOrderings},
		{Limit: 2, Offset: -2, Orderings: feedOrderings},
		{Anchor: AnchorOf(5), CountLoaded: 2, Limit: 2, Offset: 2, Orderings: feedOrderings},
		{Anchor: AnchorOf(5), CountLoaded: 2, Limit: 2, Offset: -2, Orderings: feedOrderings},
	}

	for name, source := range sources {
		paginator := Paginate[map[string]any](source)
		for _, request := range requests {
			page, err := paginator.Resolve(context.Background(), request).Collect()
			require.NoError(t, err, name)
			assert.Equal(t, EmptyResult[map[string]any](), page, name)
		}
	}
}

func TestResolveTieBreak(t *testing.T) {
	source := &naiveSource{rows: []map[string]any{
		{"id": 1, "dateCreated": 1},
		{"id": 3, "dateCreated": 1},
		{"id": 0, "dateCreated": 2},
		{"id": 2, "dateCreated": 1},
	}}

	page, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     4,
		Orderings: feedOrderings,
	}).Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 2, 1}, nodeIds(page.Nodes))
	assert.False(t, page.Info.HasMore)
	assert.Equal(t, "2", page.Info.NextAnchor.String())
}

func TestResolveStableOnFullTies(t *testing.T) {
	source := &naiveSource{rows: []map[string]any{
		{"id": 1, "dateCreated": 5},
		{"id": 2, "dateCreated": 5},
		{"id": 3, "dateCreated": 5},
	}}

	page, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     3,
		Orderings: Orderings{{Column: "dateCreated", Direction: SortDescending}},
	}).Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, nodeIds(page.Nodes))
}

func TestResolveHasMoreMonotonic(t *testing.T) {
	source := &naiveSource{}
	source.insert(0, 1, 2, 3, 4, 5, 6)
	paginator := Paginate[map[string]any](source)

	page, err := paginator.Resolve(context.Background(), PageRequest{Limit: 3, Orderings: feedOrderings}).Collect()
	require.NoError(t, err)
	seen := nodeIds(page.Nodes)
	anchor := page.Info.NextAnchor

	for page.Info.HasMore {
		offset := page.Info.MoreOffset
		page, err = paginator.Resolve(context.Background(), PageRequest{
			Anchor:      anchor,
			CountLoaded: len(seen),
			Limit:       3,
			Offset:      offset,
			Orderings:   feedOrderings,
		}).Collect()
		require.NoError(t, err)
		seen = append(seen, nodeIds(page.Nodes)...)
		require.LessOrEqual(t, len(seen), 7)
	}
	assert.Equal(t, []int{6, 5, 4, 3, 2, 1, 0}, seen)

	page, err = paginator.Resolve(context.Background(), PageRequest{
		Anchor:      anchor,
		CountLoaded: len(seen),
		Limit:       3,
		Offset:      len(seen),
		Orderings:   feedOrderings,
	}).Collect()
	require.NoError(t, err)
	assert.Empty(t, page.Nodes)
	assert.False(t, page.Info.HasMore)
}

func TestResolveValidation(t *testing.T) {
	paginator := PaginateWith[map[string]any](&naiveSource{}, Config{MaxLimit: 50, MaxCountNewLimit: 100})
	requests := map[string]PageRequest{
		"no orderings":       {Limit: 2},
		"empty column":       {Limit: 2, Orderings: Orderings{{Direction: SortAscending}}},
		"bad direction":      {Limit: 2, Orderings: Orderings{{Column: "id", Direction: "sideways"}}},
		"zero limit":         {Orderings: feedOrderings},
		"negative limit":     {Limit: -1, Orderings: feedOrderings},
		"negative loaded":    {Limit: 2, CountLoaded: -1, Orderings: feedOrderings},
		"negative count new": {Limit: 2, CountNewLimit: -1, Orderings: feedOrderings},
		"limit over max":     {Limit: 51, Orderings: feedOrderings},
		"count new over max": {Limit: 2, CountNewLimit: 101, Orderings: feedOrderings},
	}

	for name, request := range requests {
		_, err := paginator.Resolve(context.Background(), request).Collect()
		var validationErr ValidationError
		assert.True(t, errors.As(err, &validationErr), name)
	}
}

func TestResolveLowercaseDirection(t *testing.T) {
	source := &naiveSource{}
	source.insert(1, 2, 3)

	page, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     1,
		Orderings: Orderings{{Column: "dateCreated", Direction: "desc"}},
	}).Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{3}, nodeIds(page.Nodes))
}

func TestResolveSourceError(t *testing.T) {
	failure := errors.New("connection refused")
	source := &naiveSource{err: failure}

	_, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     2,
		Orderings: feedOrderings,
	}).Collect()
	var sourceErr DataSourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 502, sourceErr.Status())
}

func TestResolveCanceled(t *testing.T) {
	source := &naiveSource{}
	source.insert(1, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Paginate[map[string]any](source).Resolve(ctx, PageRequest{Limit: 2, Orderings: feedOrderings}).Collect()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, source.calls)
}

func TestResolveMissingPrimaryValue(t *testing.T) {
	source := &naiveSource{rows: []map[string]any{{"id": 1}}}

	_, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     2,
		Orderings: feedOrderings,
	}).Collect()
	var dataErr DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "dateCreated", dataErr.Column)
}

func TestResolveNewerRowMissingPrimaryValue(t *testing.T) {
	source := RetrieveFunc[map[string]any](func(ctx context.Context, constraint *Constraint) ([]map[string]any, error) {
		constraint.Ack()
		if constraint.Kind() == ConstraintReverse {
			return []map[string]any{{"id": 12}}, nil
		}
		return []map[string]any{{"id": 9, "dateCreated": 9}}, nil
	})

	_, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Anchor:      AnchorOf(9),
		CountLoaded: 2,
		Limit:       2,
		Offset:      -2,
		Orderings:   feedOrderings,
	}).Collect()
	var dataErr DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "dateCreated", dataErr.Column)
}

func TestResolveAnchorMiss(t *testing.T) {
	request := PageRequest{
		Anchor:      AnchorOf(5.5),
		CountLoaded: 0,
		Limit:       2,
		Orderings:   feedOrderings,
	}

	expected := map[AnchorMissPolicy][]int{
		"":                {9, 8},
		AnchorMissNewest:  {9, 8},
		AnchorMissNearest: {5, 4},
	}
	for policy, ids := range expected {
		source := &naiveSource{}
		source.insert(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
		page, err := PaginateWith[map[string]any](source, Config{AnchorMiss: policy}).Resolve(context.Background(), request).Collect()
		require.NoError(t, err, string(policy))
		assert.Equal(t, ids, nodeIds(page.Nodes), string(policy))
	}

	cooperative := &memorySource{}
	cooperative.insert(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	page, err := Paginate[map[string]any](cooperative).Resolve(context.Background(), request).Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, nodeIds(page.Nodes))

	source := &naiveSource{}
	source.insert(0, 1, 2)
	_, err = PaginateWith[map[string]any](source, Config{AnchorMiss: AnchorMissError}).Resolve(context.Background(), request).Collect()
	var dataErr DataError
	assert.True(t, errors.As(err, &dataErr))

	page, err = PaginateWith[map[string]any](&naiveSource{}, Config{AnchorMiss: AnchorMissError}).Resolve(context.Background(), request).Collect()
	require.NoError(t, err, "an empty source has no anchor to miss")
	assert.Equal(t, EmptyResult[map[string]any](), page)
}

type timelinePost struct {
	Body        string    `@:"body"`
	DateCreated time.Time `@:"date_created"`
	Id          int64     `@:"id"`
}

func TestResolveStructRows(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
	}
	posts := []timelinePost{
		{Body: "first", DateCreated: day(1), Id: 1},
		{Body: "second", DateCreated: day(2), Id: 2},
		{Body: "third", DateCreated: day(3), Id: 3},
	}
	source := RetrieveFunc[timelinePost](func(ctx context.Context, constraint *Constraint) ([]timelinePost, error) {
		return posts, nil
	})
	orderings := ParseOrderings("-date_created", "-id")

	// Anchors arrive from the wire as strings and must match time values.
	anchor, err := ParseAnchor(`"2024-01-02T00:00:00Z"`)
	require.NoError(t, err)

	page, err := Paginate[timelinePost](source).Resolve(context.Background(), PageRequest{
		Anchor:      anchor,
		CountLoaded: 1,
		Limit:       5,
		Orderings:   orderings,
	}).Collect()
	require.NoError(t, err)
	require.Len(t, page.Nodes, 2)
	assert.Equal(t, "second", page.Nodes[0].Body)
	assert.Equal(t, "first", page.Nodes[1].Body)
	assert.Equal(t, 1, page.Info.CountNew)
	assert.False(t, page.Info.HasMore)
}

type scoredRow struct {
	score int
}

func (row scoredRow) Field(column string) (any, bool) {
	if column == "score" {
		return row.score, true
	}
	return nil, false
}

func TestResolveFieldValuer(t *testing.T) {
	source := RetrieveFunc[scoredRow](func(ctx context.Context, constraint *Constraint) ([]scoredRow, error) {
		return []scoredRow{{score: 2}, {score: 7}, {score: 4}}, nil
	})

	page, err := Paginate[scoredRow](source).Resolve(context.Background(), PageRequest{
		Limit:     2,
		Orderings: ParseOrderings("score"),
	}).Collect()
	require.NoError(t, err)
	assert.Equal(t, []scoredRow{{score: 2}, {score: 4}}, page.Nodes)
	assert.Equal(t, "2", page.Info.NextAnchor.String())
}

func TestResolveWithField(t *testing.T) {
	source := RetrieveFunc[[2]int](func(ctx context.Context, constraint *Constraint) ([][2]int, error) {
		return [][2]int{{1, 10}, {2, 30}, {3, 20}}, nil
	})
	paginator := Paginate[[2]int](source).WithField(func(row [2]int, column string) (any, bool) {
		return row[1], column == "rank"
	})

	page, err := paginator.Resolve(context.Background(), PageRequest{
		Limit:     3,
		Orderings: ParseOrderings("-rank"),
	}).Collect()
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 30}, {3, 20}, {1, 10}}, page.Nodes)
}

func TestPageStreamerJSON(t *testing.T) {
	source := &naiveSource{}
	source.insert(1, 2, 3)

	encoded, err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{
		Limit:     2,
		Orderings: feedOrderings,
	}).JSON().Collect()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"info": {"countNew": 0, "hasMore": true, "hasNew": false, "moreOffset": 2, "nextOffsetRelativeTo": "3"},
		"nodes": [{"dateCreated": 3, "id": 3}, {"dateCreated": 2, "id": 2}]
	}`, string(encoded))

	encoded, err = Paginate[map[string]any](&naiveSource{}).Resolve(context.Background(), PageRequest{
		Limit:     2,
		Orderings: feedOrderings,
	}).JSON().Collect()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"info": {"countNew": 0, "hasMore": false, "hasNew": false, "moreOffset": 0, "nextOffsetRelativeTo": "null"},
		"nodes": []
	}`, string(encoded))
}

func TestJSONStreamerWrite(t *testing.T) {
	var buffer bytes.Buffer
	err := (&JSONStreamer{Value: map[string]any{"nodes": []int{1}}}).Write(&buffer).Error
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [1]}`, buffer.String())

	buffer.Reset()
	err = (&JSONStreamer{Value: func() {}}).Write(&buffer).Error
	assert.Error(t, err)
	assert.Empty(t, buffer.String())

	buffer.Reset()
	failed := errors.New("source failed")
	err = (&JSONStreamer{Error: failed, Value: 1}).Write(&buffer).Error
	assert.Equal(t, failed, err)
	assert.Empty(t, buffer.String())
}

func TestPageStreamerCallbacks(t *testing.T) {
	source := &naiveSource{err: errors.New("down")}
	called := false

	err := Paginate[map[string]any](source).Resolve(context.Background(), PageRequest{Limit: 2, Orderings: feedOrderings}).
		Then(func(page *PageResult[map[string]any]) error {
			called = true
			return nil
		}).
		OnError(func(err error) error {
			return errors.New("wrapped")
		}).Error
	assert.False(t, called)
	assert.EqualError(t, err, "wrapped")
}
