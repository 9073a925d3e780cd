package forms

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-portal/internal/store"
)

// Diff returns the minimal patch that turns baseline into draft: every draft
// field whose value differs from the baseline. Fields absent from the
// baseline compare equal to the empty string, and fields absent from the
// draft are never part of the patch.
func Diff(baseline, draft store.Fields) store.Fields {
	patch := store.Fields{}
	for k, want := range draft {
		got, ok := baseline[k]
		if !ok {
			got = ""
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			patch[k] = want
		}
	}
	return patch
}

func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case primitive.DateTime:
		return t.Time().UTC().Truncate(time.Millisecond)
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Truncate(time.Millisecond)
	case store.Fields:
		return normalizeMap(t)
	case bson.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		return normalizeMap(t.Map())
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = normalize(v)
	}
	return out
}
