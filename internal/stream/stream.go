// Package stream relays incremental completion chunks to callbacks while
// accumulating the full text.
package stream

import (
	"context"
	"iter"
	"strings"
)

// Chunk is one streamed completion event.
type Chunk struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is one alternative within a chunk.
type Choice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta carries the incremental fragment.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Text returns the first choice's fragment, or "" if there is none.
func (c Chunk) Text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// Callbacks receives relay events. Nil fields are skipped.
type Callbacks struct {
	OnStart    func()
	OnToken    func(token string)
	OnComplete func(full string)
	OnError    func(err error)
}

func (cb Callbacks) start() {
	if cb.OnStart != nil {
		cb.OnStart()
	}
}

func (cb Callbacks) token(s string) {
	if cb.OnToken != nil {
		cb.OnToken(s)
	}
}

func (cb Callbacks) complete(s string) {
	if cb.OnComplete != nil {
		cb.OnComplete(s)
	}
}

func (cb Callbacks) fail(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// Multi fans every event out to each of cbs in order.
func Multi(cbs ...Callbacks) Callbacks {
	return Callbacks{
		OnStart: func() {
			for _, cb := range cbs {
				cb.start()
			}
		},
		OnToken: func(s string) {
			for _, cb := range cbs {
				cb.token(s)
			}
		},
		OnComplete: func(s string) {
			for _, cb := range cbs {
				cb.complete(s)
			}
		},
		OnError: func(err error) {
			for _, cb := range cbs {
				cb.fail(err)
			}
		},
	}
}

// Relay drains seq, calling OnToken for every non-empty fragment, and
// returns the concatenated text. If seq yields an error, OnError is called
// and the error is returned as is, along with the text gathered so far.
func Relay(seq iter.Seq2[Chunk, error], cb Callbacks) (string, error) {
	cb.start()

	var full strings.Builder
	for chunk, err := range seq {
		if err != nil {
			cb.fail(err)
			return full.String(), err
		}
		if s := chunk.Text(); s != "" {
			full.WriteString(s)
			cb.token(s)
		}
	}

	cb.complete(full.String())
	return full.String(), nil
}

// RelayChan is Relay for a producer goroutine. The stream ends when chunks
// is closed. A value on errs, or ctx ending, aborts the relay. errs may be
// nil.
func RelayChan(ctx context.Context, chunks <-chan Chunk, errs <-chan error, cb Callbacks) (string, error) {
	return Relay(func(yield func(Chunk, error) bool) {
		for {
			select {
			case <-ctx.Done():
				yield(Chunk{}, ctx.Err())
				return
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				yield(Chunk{}, err)
				return
			case c, ok := <-chunks:
				if !ok {
					return
				}
				if !yield(c, nil) {
					return
				}
			}
		}
	}, cb)
}

// FromSlice yields chunks in order.
func FromSlice(chunks []Chunk) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}
