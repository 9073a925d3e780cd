package forms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-portal/internal/store"
)

func TestDiff(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC)
	tests := []struct {
		name     string
		baseline store.Fields
		draft    store.Fields
		want     store.Fields
	}{
		{"equal", store.Fields{"a": "x"}, store.Fields{"a": "x"}, store.Fields{}},
		{"changed", store.Fields{"a": "x", "b": "y"}, store.Fields{"a": "x", "b": "z"}, store.Fields{"b": "z"}},
		{"missing equals empty", store.Fields{}, store.Fields{"a": ""}, store.Fields{}},
		{"missing vs value", store.Fields{}, store.Fields{"a": "v"}, store.Fields{"a": "v"}},
		{"baseline only fields ignored", store.Fields{"a": "x", "c": 1}, store.Fields{"a": "x"}, store.Fields{}},
		{"stored time vs go time", store.Fields{"t": primitive.NewDateTimeFromTime(at)}, store.Fields{"t": at}, store.Fields{}},
		{
			"nested documents",
			store.Fields{"s": bson.M{"start": primitive.NewDateTimeFromTime(at)}},
			store.Fields{"s": store.Fields{"start": primitive.NewDateTimeFromTime(at)}},
			store.Fields{},
		},
		{"int widths", store.Fields{"n": int32(3)}, store.Fields{"n": 3}, store.Fields{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.baseline, tt.draft))
		})
	}
}
