package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// countersCollection holds one sequence document per cigarro collection.
const countersCollection = "counters"

// MongoStore implements Repository on top of a MongoDB collection.
// Documents carry a numeric "id" field allocated from a counter document,
// so identifiers stay integers as with the other stores.
type MongoStore struct {
	client     *mongo.Client
	database   string
	collection string
}

// NewMongoStore connects to uri, verifies the connection and ensures the
// unique index on name exists.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	s := &MongoStore{
		client:     client,
		database:   database,
		collection: collection,
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) col() *mongo.Collection {
	return s.client.Database(s.database).Collection(s.collection)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.col().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("creating mongo indexes: %w", err)
	}
	return nil
}

// nextID atomically increments and returns the sequence for this collection.
func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	counters := s.client.Database(s.database).Collection(countersCollection)

	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: s.collection}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Seq, nil
}

// Create inserts a new cigarro document.
func (s *MongoStore) Create(ctx context.Context, c *model.Cigarro) (*model.Cigarro, error) {
	if c == nil {
		return nil, fmt.Errorf("create cigarro: %w", ErrNilCigarro)
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create cigarro: allocating id: %w", err)
	}

	stored := *c
	stored.ID = id

	if _, err := s.col().InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create cigarro: %w", err)
	}

	return &stored, nil
}

// FindByID retrieves a cigarro by its ID.
func (s *MongoStore) FindByID(ctx context.Context, id int64) (*model.Cigarro, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	c, err := s.findOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("find cigarro by id: %w", err)
	}
	return c, nil
}

// FindByName retrieves a cigarro by its exact name.
func (s *MongoStore) FindByName(ctx context.Context, name string) (*model.Cigarro, error) {
	c, err := s.findOne(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("find cigarro by name: %w", err)
	}
	return c, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (*model.Cigarro, error) {
	var c model.Cigarro
	if err := s.col().FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll returns all cigarros ordered by ID.
func (s *MongoStore) FindAll(ctx context.Context) ([]model.Cigarro, error) {
	cursor, err := s.col().Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list cigarros: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	items := make([]model.Cigarro, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("list cigarros: %w", err)
	}

	return items, nil
}

// DeleteByID removes a cigarro by its ID.
func (s *MongoStore) DeleteByID(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	res, err := s.col().DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete cigarro: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateQuantity sets the quantity only when the stored quantity equals expected.
func (s *MongoStore) UpdateQuantity(
	ctx context.Context,
	id int64,
	expected, quantity int,
) (*model.Cigarro, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var updated model.Cigarro
	err := s.col().FindOneAndUpdate(ctx,
		bson.D{{Key: "id", Value: id}, {Key: "quantity", Value: expected}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "quantity", Value: quantity}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update cigarro quantity: %w", err)
	}

	// No match: either the cigarro is gone or its quantity moved.
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrConflict
}

// Ping checks the connection to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
