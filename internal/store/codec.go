package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode converts a bson-tagged model into stored fields. The id is dropped;
// it travels separately as the document id.
func Encode(v any) (Fields, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	delete(m, IDField)
	return Fields(m), nil
}

// Decode fills a bson-tagged model from a document, id included.
func Decode(doc Document, out any) error {
	m := bson.M{}
	for k, v := range doc.Fields {
		m[k] = v
	}
	if doc.ID != "" {
		m[IDField] = doc.ID
	}
	data, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("store: decode %s: %w", doc.ID, err)
	}
	if err := bson.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store: decode %s: %w", doc.ID, err)
	}
	return nil
}

// DecodeAll decodes every document, skipping none.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NewID returns a fresh document id in the ObjectID hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
