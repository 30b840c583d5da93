// Package stream exposes Spigot's streamed-completion relay.
package stream

import (
	"context"
	"io"
	"iter"

	internalstream "github.com/SmitUplenchwar2687/Spigot/internal/stream"
)

type (
	Chunk     = internalstream.Chunk
	Choice    = internalstream.Choice
	Delta     = internalstream.Delta
	Callbacks = internalstream.Callbacks
	Buffer    = internalstream.Buffer
)

// Relay drains seq through cb and returns the full text.
func Relay(seq iter.Seq2[Chunk, error], cb Callbacks) (string, error) {
	return internalstream.Relay(seq, cb)
}

// RelayChan relays chunks produced on a channel.
func RelayChan(ctx context.Context, chunks <-chan Chunk, errs <-chan error, cb Callbacks) (string, error) {
	return internalstream.RelayChan(ctx, chunks, errs, cb)
}

// DecodeSSE reads server-sent completion chunks from r.
func DecodeSSE(r io.Reader) iter.Seq2[Chunk, error] {
	return internalstream.DecodeSSE(r)
}

// Multi fans events out to every cb in order.
func Multi(cbs ...Callbacks) Callbacks { return internalstream.Multi(cbs...) }

// Writer prints tokens to w.
func Writer(w io.Writer) Callbacks { return internalstream.Writer(w) }

// File writes tokens to path.
func File(path string, errf func(error)) Callbacks { return internalstream.File(path, errf) }

// FromSlice yields chunks in order.
func FromSlice(chunks []Chunk) iter.Seq2[Chunk, error] { return internalstream.FromSlice(chunks) }
