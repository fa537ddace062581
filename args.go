package tideline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageArgs is the wire shape of a page request, as field arguments:
//
//	{"offset": 0, "limit": 2, "orderings": [{"index": "dateCreated", "direction": "desc"}],
//	 "countLoaded": 0, "offsetRelativeTo": "null"}
type PageArgs struct {
	CountLoaded      int        `json:"countLoaded"`
	CountNewLimit    *int       `json:"countNewLimit,omitempty"`
	Limit            int        `json:"limit"`
	Offset           int        `json:"offset"`
	OffsetRelativeTo *string    `json:"offsetRelativeTo,omitempty"`
	Orderings        []Ordering `json:"orderings"`
}

// Request decodes the anchor and builds a PageRequest.
func (args PageArgs) Request() (PageRequest, error) {
	anchor := NullAnchor
	if args.OffsetRelativeTo != nil {
		var err error
		anchor, err = ParseAnchor(*args.OffsetRelativeTo)
		if err != nil {
			return PageRequest{}, err
		}
	}
	request := PageRequest{
		Anchor:      anchor,
		CountLoaded: args.CountLoaded,
		Limit:       args.Limit,
		Offset:      args.Offset,
		Orderings:   Orderings(args.Orderings),
	}
	if args.CountNewLimit != nil {
		request.CountNewLimit = *args.CountNewLimit
	}
	return request, nil
}

// PageArgsFromQuery reads page arguments from URL query values:
//
//	?offset=2&limit=2&sort=-date_created,-id&anchor=9&count_loaded=2&count_new_limit=4
//
// Limit defaults to defaultLimit when absent.
func PageArgsFromQuery(values url.Values, defaultLimit int) (PageArgs, error) {
	args := PageArgs{
		Limit:     defaultLimit,
		Orderings: ParseOrderings(strings.Split(values.Get("sort"), ",")...),
	}

	var err error
	if args.Offset, err = queryInt(values, "offset", 0); err != nil {
		return PageArgs{}, err
	}
	if args.Limit, err = queryInt(values, "limit", defaultLimit); err != nil {
		return PageArgs{}, err
	}
	if args.CountLoaded, err = queryInt(values, "count_loaded", 0); err != nil {
		return PageArgs{}, err
	}
	if values.Has("count_new_limit") {
		countNewLimit, err := queryInt(values, "count_new_limit", 0)
		if err != nil {
			return PageArgs{}, err
		}
		args.CountNewLimit = &countNewLimit
	}
	if values.Has("anchor") {
		anchor := values.Get("anchor")
		args.OffsetRelativeTo = &anchor
	}
	return args, nil
}

func queryInt(values url.Values, key string, fallback int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationError{Message: fmt.Sprintf("'%s' must be an integer", key)}
	}
	return value, nil
}
