package bootstrap

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/common-server/server-bootstrap/internal/schema"
)

// MongoAdmin implements Admin with database commands on a connected client.
type MongoAdmin struct {
	client *mongo.Client
}

func NewMongoAdmin(client *mongo.Client) *MongoAdmin {
	return &MongoAdmin{client: client}
}

type usersInfoReply struct {
	Users []struct {
		User  string        `bson:"user"`
		DB    string        `bson:"db"`
		Roles []schema.Role `bson:"roles"`
	} `bson:"users"`
}

func (m *MongoAdmin) LookupUser(ctx context.Context, db, name string) (*UserInfo, error) {
	cmd := bson.D{{Key: "usersInfo", Value: bson.D{{Key: "user", Value: name}, {Key: "db", Value: db}}}}
	var reply usersInfoReply
	if err := m.client.Database(db).RunCommand(ctx, cmd).Decode(&reply); err != nil {
		return nil, err
	}
	for _, u := range reply.Users {
		if u.User == name && u.DB == db {
			return &UserInfo{Name: u.User, DB: u.DB, Roles: u.Roles}, nil
		}
	}
	return nil, nil
}

func (m *MongoAdmin) CreateUser(ctx context.Context, db string, u schema.User) error {
	cmd := bson.D{
		{Key: "createUser", Value: u.Name},
		{Key: "pwd", Value: u.Password},
		{Key: "roles", Value: rolesArray(u.Roles)},
	}
	return m.client.Database(db).RunCommand(ctx, cmd).Err()
}

func (m *MongoAdmin) UpdateUser(ctx context.Context, db string, u schema.User) error {
	cmd := bson.D{
		{Key: "updateUser", Value: u.Name},
		{Key: "pwd", Value: u.Password},
		{Key: "roles", Value: rolesArray(u.Roles)},
	}
	return m.client.Database(db).RunCommand(ctx, cmd).Err()
}

func (m *MongoAdmin) CollectionNames(ctx context.Context, db string) ([]string, error) {
	return m.client.Database(db).ListCollectionNames(ctx, bson.D{})
}

func (m *MongoAdmin) CreateCollection(ctx context.Context, db, name string) error {
	return m.client.Database(db).CreateCollection(ctx, name)
}

// indexSpec mirrors one document of a listIndexes reply.
type indexSpec struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	ExpireAfterSeconds *int64 `bson:"expireAfterSeconds,omitempty"`
}

func (m *MongoAdmin) ListIndexes(ctx context.Context, db, collection string) ([]schema.Index, error) {
	cur, err := m.client.Database(db).Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []schema.Index{}
	for cur.Next(ctx) {
		var spec indexSpec
		if err := cur.Decode(&spec); err != nil {
			return nil, err
		}
		out = append(out, indexFromSpec(spec))
	}
	return out, cur.Err()
}

func (m *MongoAdmin) CreateIndex(ctx context.Context, db, collection string, idx schema.Index) error {
	_, err := m.client.Database(db).Collection(collection).Indexes().CreateOne(ctx, idx.Model())
	return err
}

func (m *MongoAdmin) SetIndexExpiry(ctx context.Context, db, collection, name string, seconds int32) error {
	cmd := bson.D{
		{Key: "collMod", Value: collection},
		{Key: "index", Value: bson.D{{Key: "name", Value: name}, {Key: "expireAfterSeconds", Value: seconds}}},
	}
	return m.client.Database(db).RunCommand(ctx, cmd).Err()
}

func rolesArray(roles []schema.Role) bson.A {
	a := make(bson.A, 0, len(roles))
	for _, r := range roles {
		a = append(a, bson.D{{Key: "role", Value: r.Role}, {Key: "db", Value: r.DB}})
	}
	return a
}

func indexFromSpec(spec indexSpec) schema.Index {
	idx := schema.Index{Name: spec.Name, Keys: make([]schema.Key, 0, len(spec.Key))}
	for _, e := range spec.Key {
		idx.Keys = append(idx.Keys, schema.Key{Field: e.Key, Order: keyOrder(e.Value)})
	}
	if spec.ExpireAfterSeconds != nil {
		secs := int32(*spec.ExpireAfterSeconds)
		idx.ExpireAfterSeconds = &secs
	}
	return idx
}

// keyOrder maps the numeric direction of an index key. Special index types
// ("text", "2dsphere", "hashed") have no direction and map to zero, so they
// never match a planned key.
func keyOrder(v interface{}) schema.Order {
	var f float64
	switch n := v.(type) {
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return 0
	}
	switch {
	case f > 0:
		return schema.Ascending
	case f < 0:
		return schema.Descending
	}
	return 0
}

var _ Admin = (*MongoAdmin)(nil)
