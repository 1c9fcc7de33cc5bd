package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/common-server/server-bootstrap/internal/models"
	"github.com/common-server/server-bootstrap/internal/schema"
)

// MongoRepository implements Repository on the audit_logs collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(schema.CollectionAuditLogs)}
}

func (r *MongoRepository) Record(ctx context.Context, e *models.AuditLog) error {
	prepare(e)
	res, err := r.col.InsertOne(ctx, e)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = id
	}
	return nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditLog, error) {
	return r.list(ctx, bson.M{schema.FieldUserID: userID}, limit)
}

func (r *MongoRepository) ListByAction(ctx context.Context, action string, limit int64) ([]models.AuditLog, error) {
	return r.list(ctx, bson.M{schema.FieldAction: action}, limit)
}

func (r *MongoRepository) Recent(ctx context.Context, limit int64) ([]models.AuditLog, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *MongoRepository) list(ctx context.Context, filter bson.M, limit int64) ([]models.AuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: schema.FieldTimestamp, Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.AuditLog{}
	for cur.Next(ctx) {
		var e models.AuditLog
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

var _ Repository = (*MongoRepository)(nil)
