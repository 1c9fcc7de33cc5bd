package bootstrap

import (
	"context"

	"github.com/common-server/server-bootstrap/internal/schema"
)

// UserInfo is what the server reports about an existing user.
type UserInfo struct {
	Name  string
	DB    string
	Roles []schema.Role
}

// Admin is the set of administrative calls the bootstrap needs. MongoAdmin
// talks to a live server, MemoryAdmin keeps state in-process.
type Admin interface {
	// LookupUser returns nil, nil when the user does not exist.
	LookupUser(ctx context.Context, db, name string) (*UserInfo, error)
	CreateUser(ctx context.Context, db string, u schema.User) error
	UpdateUser(ctx context.Context, db string, u schema.User) error

	CollectionNames(ctx context.Context, db string) ([]string, error)
	CreateCollection(ctx context.Context, db, name string) error

	ListIndexes(ctx context.Context, db, collection string) ([]schema.Index, error)
	CreateIndex(ctx context.Context, db, collection string, idx schema.Index) error
	SetIndexExpiry(ctx context.Context, db, collection, name string, seconds int32) error
}
