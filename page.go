package tideline

import (
	"encoding/json"
	"io"
)

type PageRequest struct {
	// Anchor is null on a page load.
	Anchor Anchor
	// CountLoaded is how many rows the client holds relative to Anchor. It is
	// ignored when Anchor is null.
	CountLoaded int
	// CountNewLimit caps the lookahead for newer rows. Zero means Limit.
	CountNewLimit int
	Limit         int
	// Offset is relative to Anchor. Negative offsets load newer rows.
	Offset    int
	Orderings Orderings
}

type PageInfo struct {
	CountNew   int
	HasMore    bool
	HasNew     bool
	MoreOffset int
	NextAnchor Anchor
}

func (info PageInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(pageInfoJson{
		CountNew:             info.CountNew,
		HasMore:              info.HasMore,
		HasNew:               info.HasNew,
		MoreOffset:           info.MoreOffset,
		NextOffsetRelativeTo: info.NextAnchor.String(),
	})
}

func (info *PageInfo) UnmarshalJSON(data []byte) error {
	var decoded pageInfoJson
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	anchor, err := ParseAnchor(decoded.NextOffsetRelativeTo)
	if err != nil {
		return err
	}
	*info = PageInfo{
		CountNew:   decoded.CountNew,
		HasMore:    decoded.HasMore,
		HasNew:     decoded.HasNew,
		MoreOffset: decoded.MoreOffset,
		NextAnchor: anchor,
	}
	return nil
}

type pageInfoJson struct {
	CountNew             int    `json:"countNew"`
	HasMore              bool   `json:"hasMore"`
	HasNew               bool   `json:"hasNew"`
	MoreOffset           int    `json:"moreOffset"`
	NextOffsetRelativeTo string `json:"nextOffsetRelativeTo"`
}

type PageResult[T any] struct {
	Info  PageInfo `json:"info"`
	Nodes []T      `json:"nodes"`
}

// EmptyResult is the page returned for an empty row source.
func EmptyResult[T any]() *PageResult[T] {
	return &PageResult[T]{
		Info:  PageInfo{NextAnchor: NullAnchor},
		Nodes: make([]T, 0),
	}
}

type PageStreamer[T any] struct {
	Error error
	Value *PageResult[T]
}

func (stream *PageStreamer[T]) Collect() (*PageResult[T], error) {
	return stream.Value, stream.Error
}

func (stream *PageStreamer[T]) JSON() *JSONStreamer {
	return &JSONStreamer{
		Error: stream.Error,
		Value: stream.Value,
	}
}

func (stream *PageStreamer[T]) OnError(callback func(error) error) *PageStreamer[T] {
	if stream.Error != nil {
		stream.Error = callback(stream.Error)
	}
	return stream
}

func (stream *PageStreamer[T]) Then(callback func(*PageResult[T]) error) *PageStreamer[T] {
	if stream.Error == nil {
		stream.Error = callback(stream.Value)
	}
	return stream
}

type JSONStreamer struct {
	Error error
	Value any
}

func (stream *JSONStreamer) Collect() ([]byte, error) {
	if stream.Error != nil {
		return []byte{}, stream.Error
	}

	return json.Marshal(stream.Value)
}

func (stream *JSONStreamer) Write(writer io.Writer) *JSONStreamer {
	if stream.Error == nil {
		var encoded []byte
		encoded, stream.Error = json.Marshal(stream.Value)
		if stream.Error != nil {
			return stream
		}
		_, stream.Error = writer.Write(encoded)
	}
	return stream
}
