package schema

import (
	"errors"
	"fmt"
	"time"
)

const (
	CollectionChatMessages = "chat_messages"
	CollectionAuditLogs    = "audit_logs"

	FieldRoomID    = "roomId"
	FieldSenderID  = "senderId"
	FieldCreatedAt = "createdAt"
	FieldTimestamp = "timestamp"
	FieldUserID    = "userId"
	FieldAction    = "action"

	RoleReadWrite = "readWrite"

	ChatMessagesTTL = 30 * 24 * time.Hour
	AuditLogsTTL    = 90 * 24 * time.Hour
)

// ErrInvalidPlan is returned (wrapped) by Plan.Validate.
var ErrInvalidPlan = errors.New("invalid bootstrap plan")

// Role grants a named permission set on one database.
type Role struct {
	Role string `bson:"role" json:"role"`
	DB   string `bson:"db" json:"db"`
}

// User is the credentialed application user.
type User struct {
	Name     string
	Password string
	Roles    []Role
}

// Collection is a collection and the indexes declared on it.
type Collection struct {
	Name    string
	Indexes []Index
}

// Plan is everything the bootstrap provisions in one logical database.
type Plan struct {
	Database    string
	User        User
	Collections []Collection
}

// DefaultPlan returns the application database layout: one readWrite user,
// chat_messages with a per-room timeline index, a sender index and a TTL,
// and audit_logs with timestamp, per-user, action and TTL indexes.
func DefaultPlan(database, user, password string, chatTTL, auditTTL time.Duration) Plan {
	return Plan{
		Database: database,
		User: User{
			Name:     user,
			Password: password,
			Roles:    []Role{{Role: RoleReadWrite, DB: database}},
		},
		Collections: []Collection{
			{
				Name: CollectionChatMessages,
				Indexes: []Index{
					NewIndex(Asc(FieldRoomID), Desc(FieldCreatedAt)),
					NewIndex(Asc(FieldSenderID)),
					NewTTLIndex(FieldCreatedAt, chatTTL),
				},
			},
			{
				Name: CollectionAuditLogs,
				Indexes: []Index{
					NewIndex(Desc(FieldTimestamp)),
					NewIndex(Asc(FieldUserID), Desc(FieldTimestamp)),
					NewIndex(Asc(FieldAction)),
					NewTTLIndex(FieldCreatedAt, auditTTL),
				},
			},
		},
	}
}

// Collection looks up a collection of the plan by name.
func (p Plan) Collection(name string) (Collection, bool) {
	for _, c := range p.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// IndexCount returns the number of declared indexes across all collections.
func (p Plan) IndexCount() int {
	n := 0
	for _, c := range p.Collections {
		n += len(c.Indexes)
	}
	return n
}

// Validate checks the plan before anything is sent to the server.
func (p Plan) Validate() error {
	if p.Database == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPlan)
	}
	if p.User.Name == "" || p.User.Password == "" {
		return fmt.Errorf("%w: user name and password are required", ErrInvalidPlan)
	}
	if len(p.User.Roles) != 1 {
		return fmt.Errorf("%w: user %q must hold exactly one role, got %d", ErrInvalidPlan, p.User.Name, len(p.User.Roles))
	}
	if r := p.User.Roles[0]; r.Role == "" || r.DB != p.Database {
		return fmt.Errorf("%w: role %q must be scoped to %q, got %q", ErrInvalidPlan, r.Role, p.Database, r.DB)
	}

	seen := map[string]bool{}
	for _, c := range p.Collections {
		if c.Name == "" {
			return fmt.Errorf("%w: collection name is empty", ErrInvalidPlan)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidPlan, c.Name)
		}
		seen[c.Name] = true
		if err := validateIndexes(c); err != nil {
			return err
		}
	}
	return nil
}

func validateIndexes(c Collection) error {
	names := map[string]bool{}
	for _, idx := range c.Indexes {
		if len(idx.Keys) == 0 {
			return fmt.Errorf("%w: index on %s has no keys", ErrInvalidPlan, c.Name)
		}
		for _, k := range idx.Keys {
			if k.Field == "" || (k.Order != Ascending && k.Order != Descending) {
				return fmt.Errorf("%w: index %s.%s has an invalid key %+v", ErrInvalidPlan, c.Name, idx.Name, k)
			}
		}
		if idx.Name == "" {
			return fmt.Errorf("%w: index on %s has no name", ErrInvalidPlan, c.Name)
		}
		if names[idx.Name] {
			return fmt.Errorf("%w: duplicate index %s.%s", ErrInvalidPlan, c.Name, idx.Name)
		}
		names[idx.Name] = true
		if idx.ExpireAfterSeconds != nil {
			// the server only expires documents through single-field indexes
			if len(idx.Keys) != 1 {
				return fmt.Errorf("%w: TTL index %s.%s must have exactly one key", ErrInvalidPlan, c.Name, idx.Name)
			}
			if *idx.ExpireAfterSeconds <= 0 {
				return fmt.Errorf("%w: TTL index %s.%s needs a positive expiry", ErrInvalidPlan, c.Name, idx.Name)
			}
		}
	}
	return nil
}
