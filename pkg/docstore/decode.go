package docstore

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies the document's fields into out, a pointer to a struct tagged with `doc:"..."`.
// Timestamps may be stored as RFC 3339 strings.
func Decode(doc Document, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "doc",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("could not create decoder: %w", err)
	}
	if err := decoder.Decode(doc.Data); err != nil {
		return fmt.Errorf("could not decode document %s: %w", doc.Id, err)
	}
	return nil
}

// applyPatch returns a copy of data with patch merged in. Dotted keys address
// nested maps, which are created on demand.
func applyPatch(data map[string]any, patch map[string]any) map[string]any {
	result := cloneMap(data)
	if result == nil {
		result = make(map[string]any, len(patch))
	}
	for key, value := range patch {
		path := strings.Split(key, ".")
		target := result
		for _, segment := range path[:len(path)-1] {
			next, ok := target[segment].(map[string]any)
			if !ok {
				next = make(map[string]any)
			}
			target[segment] = next
			target = next
		}
		target[path[len(path)-1]] = cloneValue(value)
	}
	return result
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}
	return v
}
