package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func defaultPlan() Plan {
	return DefaultPlan("server", "server_app", "server_password", ChatMessagesTTL, AuditLogsTTL)
}

func TestDefaultPlan_Layout(t *testing.T) {
	p := defaultPlan()
	require.NoError(t, p.Validate())
	require.Equal(t, "server", p.Database)
	require.Equal(t, []Role{{Role: "readWrite", DB: "server"}}, p.User.Roles)
	require.Len(t, p.Collections, 2)
	require.Equal(t, 7, p.IndexCount())

	chat, ok := p.Collection(CollectionChatMessages)
	require.True(t, ok)
	names := []string{}
	for _, idx := range chat.Indexes {
		names = append(names, idx.Name)
	}
	require.Equal(t, []string{"roomId_1_createdAt_-1", "senderId_1", "createdAt_1"}, names)

	audit, ok := p.Collection(CollectionAuditLogs)
	require.True(t, ok)
	names = names[:0]
	for _, idx := range audit.Indexes {
		names = append(names, idx.Name)
	}
	require.Equal(t, []string{"timestamp_-1", "userId_1_timestamp_-1", "action_1", "createdAt_1"}, names)
}

func TestDefaultPlan_TTLs(t *testing.T) {
	p := defaultPlan()
	var ttls []int32
	plain := 0
	for _, c := range p.Collections {
		for _, idx := range c.Indexes {
			if idx.ExpireAfterSeconds != nil {
				ttls = append(ttls, *idx.ExpireAfterSeconds)
			} else {
				plain++
			}
		}
	}
	require.Equal(t, []int32{2592000, 7776000}, ttls)
	require.Equal(t, 5, plain)
}

func TestIndexModel(t *testing.T) {
	idx := NewIndex(Asc("roomId"), Desc("createdAt"))
	m := idx.Model()
	require.Equal(t, bson.D{{Key: "roomId", Value: int32(1)}, {Key: "createdAt", Value: int32(-1)}}, m.Keys)
	require.Equal(t, "roomId_1_createdAt_-1", *m.Options.Name)
	require.Nil(t, m.Options.ExpireAfterSeconds)

	ttl := NewTTLIndex("createdAt", 90*24*time.Hour)
	tm := ttl.Model()
	require.Equal(t, int32(7776000), *tm.Options.ExpireAfterSeconds)
	d, ok := ttl.TTL()
	require.True(t, ok)
	require.Equal(t, 90*24*time.Hour, d)
}

func TestIndexComparisons(t *testing.T) {
	a := NewIndex(Asc("userId"), Desc("timestamp"))
	b := NewIndex(Asc("userId"), Desc("timestamp"))
	c := NewIndex(Asc("userId"), Asc("timestamp"))
	require.True(t, a.SameKeys(b))
	require.False(t, a.SameKeys(c))
	require.True(t, a.SameTTL(b))

	t1 := NewTTLIndex("createdAt", time.Hour)
	t2 := NewTTLIndex("createdAt", 2*time.Hour)
	require.True(t, t1.SameKeys(t2))
	require.False(t, t1.SameTTL(t2))
	require.False(t, t1.SameTTL(NewIndex(Asc("createdAt"))))
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(p *Plan){
		"empty database": func(p *Plan) { p.Database = "" },
		"no password":    func(p *Plan) { p.User.Password = "" },
		"two roles": func(p *Plan) {
			p.User.Roles = append(p.User.Roles, Role{Role: "read", DB: "server"})
		},
		"foreign role": func(p *Plan) { p.User.Roles = []Role{{Role: "readWrite", DB: "admin"}} },
		"duplicate collection": func(p *Plan) {
			p.Collections = append(p.Collections, Collection{Name: CollectionAuditLogs})
		},
		"keyless index": func(p *Plan) {
			p.Collections[0].Indexes = append(p.Collections[0].Indexes, Index{Name: "x"})
		},
		"duplicate index": func(p *Plan) {
			p.Collections[0].Indexes = append(p.Collections[0].Indexes, NewIndex(Asc(FieldSenderID)))
		},
		"compound ttl": func(p *Plan) {
			idx := NewIndex(Asc("a"), Asc("b"))
			secs := int32(10)
			idx.ExpireAfterSeconds = &secs
			p.Collections[0].Indexes = append(p.Collections[0].Indexes, idx)
		},
		"zero ttl": func(p *Plan) {
			p.Collections[1].Indexes[3] = NewTTLIndex(FieldCreatedAt, 0)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := defaultPlan()
			mutate(&p)
			require.ErrorIs(t, p.Validate(), ErrInvalidPlan)
		})
	}
}

func TestDefaultPlan_TTLOutOfRange(t *testing.T) {
	p := DefaultPlan("server", "server_app", "pw", 5000000000*time.Second, AuditLogsTTL)
	chat, ok := p.Collection(CollectionChatMessages)
	require.True(t, ok)
	require.Equal(t, int32(0), *chat.Indexes[2].ExpireAfterSeconds)
	require.ErrorIs(t, p.Validate(), ErrInvalidPlan)

	p = DefaultPlan("server", "server_app", "pw", MaxTTL, AuditLogsTTL)
	require.NoError(t, p.Validate())
}
