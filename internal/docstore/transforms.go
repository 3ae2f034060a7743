package docstore

import (
	"fmt"
	"time"
)

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when the write is applied.
// It may appear at any depth inside maps and slices.
var ServerTimestamp any = serverTimestamp{}

type arrayAppend struct {
	elems []any
}

// ArrayAppend appends elems to an array field when the write is applied,
// creating the array if the field is absent.
func ArrayAppend(elems ...any) any {
	return arrayAppend{elems: elems}
}

// Apply merges update into base and resolves transforms against now. Base is
// not modified.
func Apply(base, update Fields, now time.Time) (Fields, error) {
	out := make(Fields, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for field, value := range update {
		if !ValidField(field) {
			return nil, fmt.Errorf("field %q: %w", field, ErrInvalidInput)
		}
		if app, ok := value.(arrayAppend); ok {
			var existing []any
			switch cur := out[field].(type) {
			case nil:
			case []any:
				existing = cur
			default:
				return nil, fmt.Errorf("field %q is not an array: %w", field, ErrInvalidInput)
			}
			merged := make([]any, 0, len(existing)+len(app.elems))
			merged = append(merged, existing...)
			for _, elem := range app.elems {
				merged = append(merged, resolve(elem, now))
			}
			out[field] = merged
			continue
		}
		out[field] = resolve(value, now)
	}
	return out, nil
}

func resolve(value any, now time.Time) any {
	switch v := value.(type) {
	case serverTimestamp:
		return now
	case Fields:
		return resolveMap(v, now)
	case map[string]any:
		return resolveMap(v, now)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = resolve(v[i], now)
		}
		return out
	default:
		return value
	}
}

func resolveMap(m map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = resolve(v, now)
	}
	return out
}
