package stream

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(s string) Chunk {
	return Chunk{Choices: []Choice{{Delta: Delta{Content: s}}}}
}

// recorder logs every callback event.
func recorder(events *[]string) Callbacks {
	return Callbacks{
		OnStart:    func() { *events = append(*events, "start") },
		OnToken:    func(s string) { *events = append(*events, "token:"+s) },
		OnComplete: func(s string) { *events = append(*events, "complete:"+s) },
		OnError:    func(err error) { *events = append(*events, "error:"+err.Error()) },
	}
}

func failingAfter(chunks []Chunk, err error) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		yield(Chunk{}, err)
	}
}

func TestRelay_Accumulates(t *testing.T) {
	var events []string
	full, err := Relay(FromSlice([]Chunk{chunk("Hel"), chunk(""), {}, chunk("lo")}), recorder(&events))

	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
	assert.Equal(t, []string{"start", "token:Hel", "token:lo", "complete:Hello"}, events)
}

func TestRelay_OnlyFirstChoice(t *testing.T) {
	c := Chunk{Choices: []Choice{
		{Index: 0, Delta: Delta{Content: "a"}},
		{Index: 1, Delta: Delta{Content: "b"}},
	}}
	full, err := Relay(FromSlice([]Chunk{c, c}), Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "aa", full)
}

func TestRelay_Error(t *testing.T) {
	boom := errors.New("boom")
	var events []string

	full, err := Relay(failingAfter([]Chunk{chunk("x")}, boom), recorder(&events))
	assert.Same(t, boom, err)
	assert.Equal(t, "x", full)
	assert.Equal(t, []string{"start", "token:x", "error:boom"}, events)
}

func TestRelay_NilCallbacks(t *testing.T) {
	full, err := Relay(FromSlice([]Chunk{chunk("ok")}), Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "ok", full)
}

func TestRelayChan(t *testing.T) {
	chunks := make(chan Chunk)
	go func() {
		defer close(chunks)
		for _, s := range []string{"a", "b", "c"} {
			chunks <- chunk(s)
		}
	}()

	var buf Buffer
	full, err := RelayChan(context.Background(), chunks, nil, buf.Callbacks())
	require.NoError(t, err)
	assert.Equal(t, "abc", full)
	assert.Equal(t, []string{"a", "b", "c"}, buf.Tokens())
	assert.Equal(t, "abc", buf.Text())
}

func TestRelayChan_ProducerError(t *testing.T) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	boom := errors.New("connection reset")
	go func() {
		chunks <- chunk("a")
		errs <- boom
	}()

	var events []string
	full, err := RelayChan(context.Background(), chunks, errs, recorder(&events))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "a", full)
	assert.Equal(t, "error:connection reset", events[len(events)-1])
}

func TestRelayChan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RelayChan(ctx, make(chan Chunk), nil, Callbacks{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMulti(t *testing.T) {
	var a, b []string
	full, err := Relay(FromSlice([]Chunk{chunk("hi")}), Multi(recorder(&a), Callbacks{}, recorder(&b)))
	require.NoError(t, err)
	assert.Equal(t, "hi", full)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"start", "token:hi", "complete:hi"}, a)
}

func TestWriter(t *testing.T) {
	var out bytes.Buffer
	_, err := Relay(FromSlice([]Chunk{chunk("foo"), chunk("bar")}), Writer(&out))
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out.String())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	var errs []error
	cb := File(path, func(err error) { errs = append(errs, err) })

	_, err := Relay(FromSlice([]Chunk{chunk("one "), chunk("two")}), cb)
	require.NoError(t, err)
	assert.Empty(t, errs)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one two", string(data))
}

func TestFile_ClosedOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.txt")
	_, err := Relay(failingAfter([]Chunk{chunk("partial")}, errors.New("boom")), File(path, nil))
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(data))
}

func TestFile_CreateFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	var errs []error
	full, err := Relay(FromSlice([]Chunk{chunk("x")}), File(path, func(err error) { errs = append(errs, err) }))

	require.NoError(t, err, "a broken sink does not fail the relay")
	assert.Equal(t, "x", full)
	require.Len(t, errs, 1)
	assert.True(t, strings.Contains(errs[0].Error(), "creating stream file"))
}
