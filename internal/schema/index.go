package schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Order is the sort direction of an index key.
type Order int

const (
	Ascending  Order = 1
	Descending Order = -1
)

// Key is one field of an index, in declaration order.
type Key struct {
	Field string
	Order Order
}

// Index describes a single index definition. ExpireAfterSeconds is set only
// for TTL indexes.
type Index struct {
	Name               string
	Keys               []Key
	ExpireAfterSeconds *int32
}

// Asc and Desc are shorthands used when declaring plans.
func Asc(field string) Key  { return Key{Field: field, Order: Ascending} }
func Desc(field string) Key { return Key{Field: field, Order: Descending} }

// NewIndex builds an index named after its keys, the same way the server
// names indexes created without an explicit name.
func NewIndex(keys ...Key) Index {
	idx := Index{Keys: keys}
	idx.Name = idx.DefaultName()
	return idx
}

// MaxTTL is the longest expiry the server stores (int32 seconds).
const MaxTTL = math.MaxInt32 * time.Second

// NewTTLIndex builds a single-field ascending index that expires documents
// ttl after the field's value. A ttl outside (0, MaxTTL] yields an expiry of
// zero, which Plan.Validate rejects.
func NewTTLIndex(field string, ttl time.Duration) Index {
	idx := NewIndex(Asc(field))
	var secs int32
	if ttl > 0 && ttl <= MaxTTL {
		secs = int32(ttl / time.Second)
	}
	idx.ExpireAfterSeconds = &secs
	return idx
}

// DefaultName returns "<field>_<order>" joined with underscores, e.g.
// "roomId_1_createdAt_-1".
func (i Index) DefaultName() string {
	parts := make([]string, 0, len(i.Keys)*2)
	for _, k := range i.Keys {
		parts = append(parts, k.Field, fmt.Sprintf("%d", int(k.Order)))
	}
	return strings.Join(parts, "_")
}

// TTL reports the expiry duration of a TTL index.
func (i Index) TTL() (time.Duration, bool) {
	if i.ExpireAfterSeconds == nil {
		return 0, false
	}
	return time.Duration(*i.ExpireAfterSeconds) * time.Second, true
}

// SameKeys reports whether both indexes cover the same fields in the same
// order and direction.
func (i Index) SameKeys(o Index) bool {
	if len(i.Keys) != len(o.Keys) {
		return false
	}
	for n := range i.Keys {
		if i.Keys[n] != o.Keys[n] {
			return false
		}
	}
	return true
}

// SameTTL reports whether both indexes carry the same expiry (or none).
func (i Index) SameTTL(o Index) bool {
	if i.ExpireAfterSeconds == nil || o.ExpireAfterSeconds == nil {
		return i.ExpireAfterSeconds == nil && o.ExpireAfterSeconds == nil
	}
	return *i.ExpireAfterSeconds == *o.ExpireAfterSeconds
}

// KeysDocument returns the ordered key document for the driver.
func (i Index) KeysDocument() bson.D {
	d := make(bson.D, 0, len(i.Keys))
	for _, k := range i.Keys {
		d = append(d, bson.E{Key: k.Field, Value: int32(k.Order)})
	}
	return d
}

// Model converts the definition to a driver index model.
func (i Index) Model() mongo.IndexModel {
	opts := options.Index().SetName(i.Name)
	if i.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*i.ExpireAfterSeconds)
	}
	return mongo.IndexModel{Keys: i.KeysDocument(), Options: opts}
}

func (i Index) String() string {
	if ttl, ok := i.TTL(); ok {
		return fmt.Sprintf("%s (ttl %s)", i.Name, ttl)
	}
	return i.Name
}
