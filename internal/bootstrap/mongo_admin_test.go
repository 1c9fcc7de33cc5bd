package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/common-server/server-bootstrap/internal/schema"
)

func TestIndexFromSpec(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "v", Value: int32(2)},
		{Key: "key", Value: bson.D{{Key: "createdAt", Value: 1.0}}},
		{Key: "name", Value: "createdAt_1"},
		{Key: "expireAfterSeconds", Value: int32(2592000)},
	})
	require.NoError(t, err)
	var spec indexSpec
	require.NoError(t, bson.Unmarshal(raw, &spec))

	idx := indexFromSpec(spec)
	require.True(t, idx.SameKeys(schema.NewIndex(schema.Asc("createdAt"))))
	require.True(t, idx.SameTTL(schema.NewTTLIndex("createdAt", schema.ChatMessagesTTL)))

	raw, err = bson.Marshal(bson.D{
		{Key: "key", Value: bson.D{{Key: "userId", Value: int32(1)}, {Key: "timestamp", Value: int64(-1)}}},
		{Key: "name", Value: "userId_1_timestamp_-1"},
	})
	require.NoError(t, err)
	spec = indexSpec{}
	require.NoError(t, bson.Unmarshal(raw, &spec))
	idx = indexFromSpec(spec)
	require.Equal(t, []schema.Key{schema.Asc("userId"), schema.Desc("timestamp")}, idx.Keys)
	require.Nil(t, idx.ExpireAfterSeconds)
}

func TestKeyOrder_SpecialIndexes(t *testing.T) {
	require.Equal(t, schema.Order(0), keyOrder("text"))
	require.Equal(t, schema.Order(0), keyOrder("2dsphere"))
	require.Equal(t, schema.Descending, keyOrder(-1.0))
}

func TestRolesArray(t *testing.T) {
	a := rolesArray([]schema.Role{{Role: "readWrite", DB: "server"}})
	require.Equal(t, bson.A{bson.D{{Key: "role", Value: "readWrite"}, {Key: "db", Value: "server"}}}, a)
}
