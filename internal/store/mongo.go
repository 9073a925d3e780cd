package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores each collection as a MongoDB collection with string _id values.
type Mongo struct {
	DB *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{DB: db}
}

func (m *Mongo) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.DB.Collection(collection).FindOne(ctx, bson.M{IDField: id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	return toDocument(raw), nil
}

func (m *Mongo) ListCollection(ctx context.Context, collection string) ([]Document, error) {
	return m.find(ctx, collection, bson.M{}, options.Find())
}

func (m *Mongo) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Equals
	}
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	return m.find(ctx, collection, filter, findOptions)
}

func (m *Mongo) find(ctx context.Context, collection string, filter bson.M, opts *options.FindOptions) ([]Document, error) {
	cursor, err := m.DB.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, toDocument(r))
	}
	return docs, nil
}

func (m *Mongo) CreateDocument(ctx context.Context, collection, id string, fields Fields) (string, error) {
	if id == "" {
		id = NewID()
	}
	_, err := m.DB.Collection(collection).InsertOne(ctx, withID(id, fields))
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrExists
	}
	if err != nil {
		return "", fmt.Errorf("store: create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (m *Mongo) SetDocument(ctx context.Context, collection, id string, fields Fields) error {
	_, err := m.DB.Collection(collection).ReplaceOne(ctx, bson.M{IDField: id}, withID(id, fields), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store: set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) UpdateDocument(ctx context.Context, collection, id string, patch Fields) error {
	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	result, err := m.DB.Collection(collection).UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("store: update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := m.DB.Collection(collection).DeleteOne(ctx, bson.M{IDField: id}); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes the portal queries on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.DB.Collection(Identities).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("store: identities index: %w", err)
	}
	_, err = m.DB.Collection(Appointments).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appointment_PatientID", Value: 1}, {Key: "appointment_Date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("store: appointment index: %w", err)
	}
	return nil
}

func withID(id string, fields Fields) bson.M {
	doc := bson.M{IDField: id}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		doc[k] = v
	}
	return doc
}

func toDocument(raw bson.M) Document {
	id := idString(raw[IDField])
	delete(raw, IDField)
	return Document{ID: id, Fields: Fields(raw)}
}
