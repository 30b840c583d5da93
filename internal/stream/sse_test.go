package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sseBody = `data: {"id":"c1","choices":[{"index":0,"delta":{"role":"assistant"}}]}

: keep-alive
data: {"id":"c1","choices":[{"index":0,"delta":{"content":"Hello"}}]}

event: message
data: {"id":"c1","choices":[{"index":0,"delta":{"content":", world"},"finish_reason":"stop"}]}

data: [DONE]

data: {"id":"ignored","choices":[{"index":0,"delta":{"content":"!"}}]}
`

func TestDecodeSSE(t *testing.T) {
	var got []Chunk
	for c, err := range DecodeSSE(strings.NewReader(sseBody)) {
		require.NoError(t, err)
		got = append(got, c)
	}

	require.Len(t, got, 3)
	assert.Equal(t, "assistant", got[0].Choices[0].Delta.Role)
	assert.Equal(t, "Hello", got[1].Text())
	assert.Equal(t, "stop", got[2].Choices[0].FinishReason)
}

func TestDecodeSSE_RelayEndToEnd(t *testing.T) {
	full, err := Relay(DecodeSSE(strings.NewReader(sseBody)), Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", full)
}

func TestDecodeSSE_MalformedChunk(t *testing.T) {
	var errs int
	for _, err := range DecodeSSE(strings.NewReader("data: {not json}\n\ndata: {}\n")) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs, "decoding stops at the first bad payload")
}

func TestDecodeSSE_ReadError(t *testing.T) {
	boom := errors.New("read failed")
	_, err := Relay(DecodeSSE(iotest.ErrReader(boom)), Callbacks{})
	assert.ErrorIs(t, err, boom)
}

func TestEncodeSSE_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSSE(&buf, chunk("a")))
	require.NoError(t, EncodeSSE(&buf, chunk("b")))
	require.NoError(t, EncodeDone(&buf))

	full, err := Relay(DecodeSSE(&buf), Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "ab", full)
}
