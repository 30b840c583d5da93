package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Deterministic(t *testing.T) {
	args := []any{"gpt-4", 0.7}
	kwargs := map[string]any{"max_tokens": 128, "stream": false}

	k1, err := Key(args, kwargs)
	require.NoError(t, err)
	k2, err := Key(args, kwargs)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 16)
}

func TestKey_KeywordOrderIndependent(t *testing.T) {
	a := map[string]any{"model": "m", "temperature": 0.2, "messages": []string{"hi"}}
	b := map[string]any{"messages": []string{"hi"}, "temperature": 0.2, "model": "m"}

	ka, err := Key(nil, a)
	require.NoError(t, err)
	kb, err := Key(nil, b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestKey_PositionalOrderMatters(t *testing.T) {
	k1, err := Key([]any{"a", "b"}, nil)
	require.NoError(t, err)
	k2, err := Key([]any{"b", "a"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestKey_PositionalAndKeywordAreDistinct(t *testing.T) {
	k1, err := Key([]any{"model"}, nil)
	require.NoError(t, err)
	k2, err := Key(nil, map[string]any{"model": nil})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestKey_NilAndEmptyAgree(t *testing.T) {
	k1, err := Key(nil, nil)
	require.NoError(t, err)
	k2, err := Key([]any{}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestKey_UnserializableArgument(t *testing.T) {
	_, err := Key([]any{make(chan int)}, nil)
	require.Error(t, err)

	var keyErr *KeyError
	assert.True(t, errors.As(err, &keyErr))

	_, err = Key(nil, map[string]any{"callback": func() {}})
	assert.True(t, errors.As(err, &keyErr))
}
