package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/common-server/server-bootstrap/internal/models"
	"github.com/common-server/server-bootstrap/internal/schema"
)

// MongoRepository implements Repository on the chat_messages collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(schema.CollectionChatMessages)}
}

var newestFirst = bson.D{{Key: schema.FieldCreatedAt, Value: -1}}

func (r *MongoRepository) Save(ctx context.Context, m *models.ChatMessage) error {
	if err := prepare(m); err != nil {
		return err
	}
	res, err := r.col.InsertOne(ctx, m)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = id
	}
	return nil
}

func (r *MongoRepository) FindByRoom(ctx context.Context, roomID string, page, size int64) (*Page, error) {
	page, size = normalizePage(page, size)
	filter := bson.M{schema.FieldRoomID: roomID}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(newestFirst).SetSkip(page * size).SetLimit(size)
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Page: page, Size: size, Total: total}, nil
}

func (r *MongoRepository) RecentByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(RecentLimit)
	return r.find(ctx, bson.M{schema.FieldRoomID: roomID}, opts)
}

func (r *MongoRepository) FindByRoomAfter(ctx context.Context, roomID string, after time.Time) ([]models.ChatMessage, error) {
	filter := bson.M{schema.FieldRoomID: roomID, schema.FieldCreatedAt: bson.M{"$gt": after}}
	opts := options.Find().SetSort(bson.D{{Key: schema.FieldCreatedAt, Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) FindBySender(ctx context.Context, senderID string, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, bson.M{schema.FieldSenderID: senderID}, opts)
}

func (r *MongoRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{schema.FieldRoomID: roomID})
}

func (r *MongoRepository) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{schema.FieldRoomID: roomID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.ChatMessage, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ChatMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Repository = (*MongoRepository)(nil)
