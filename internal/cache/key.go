package cache

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// KeyError reports call arguments that could not be serialized into a key.
type KeyError struct {
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("cache: cannot derive key: %v", e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// KeyFunc derives a cache key from a call's positional and keyword arguments.
type KeyFunc func(args []any, kwargs map[string]any) (string, error)

// Key derives a deterministic key from a call's arguments. Positional
// arguments keep their order; keyword arguments are sorted by name, so two
// calls that differ only in keyword order share a key. The canonical JSON
// form is hashed with xxhash64. Distinct argument sets can collide; callers
// that cannot accept that risk should supply their own KeyFunc.
func Key(args []any, kwargs map[string]any) (string, error) {
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, [2]any{name, kwargs[name]})
	}
	if args == nil {
		args = []any{}
	}

	data, err := json.Marshal([]any{args, pairs})
	if err != nil {
		return "", &KeyError{Err: err}
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}
