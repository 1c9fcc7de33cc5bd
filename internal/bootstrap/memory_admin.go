package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/common-server/server-bootstrap/internal/schema"
)

type memUser struct {
	password string
	roles    []schema.Role
}

type memDatabase struct {
	users       map[string]*memUser
	collections map[string][]schema.Index
}

// MemoryAdmin is an in-process Admin. It mimics the server's behaviour for
// the calls the bootstrap makes: duplicate users and collections are
// rejected, every collection carries an _id_ index, and index names are
// unique per collection. Used by tests.
type MemoryAdmin struct {
	mu    sync.Mutex
	dbs   map[string]*memDatabase
	fail  map[string]error
	calls map[string]int
}

func NewMemoryAdmin() *MemoryAdmin {
	return &MemoryAdmin{
		dbs:   map[string]*memDatabase{},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

// FailOn makes the named operation (e.g. "CreateIndex") return err until
// cleared with a nil error.
func (m *MemoryAdmin) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how many times an operation was invoked.
func (m *MemoryAdmin) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Password returns the stored credential of a user; for tests.
func (m *MemoryAdmin) Password(db, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dbs[db]
	if !ok {
		return "", false
	}
	u, ok := d.users[name]
	if !ok {
		return "", false
	}
	return u.password, true
}

// enter records the call and returns the injected failure, if any. Caller
// holds m.mu.
func (m *MemoryAdmin) enter(op string) error {
	m.calls[op]++
	return m.fail[op]
}

func (m *MemoryAdmin) database(name string) *memDatabase {
	d, ok := m.dbs[name]
	if !ok {
		d = &memDatabase{users: map[string]*memUser{}, collections: map[string][]schema.Index{}}
		m.dbs[name] = d
	}
	return d
}

func (m *MemoryAdmin) LookupUser(ctx context.Context, db, name string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LookupUser"); err != nil {
		return nil, err
	}
	u, ok := m.database(db).users[name]
	if !ok {
		return nil, nil
	}
	return &UserInfo{Name: name, DB: db, Roles: append([]schema.Role(nil), u.roles...)}, nil
}

func (m *MemoryAdmin) CreateUser(ctx context.Context, db string, u schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateUser"); err != nil {
		return err
	}
	d := m.database(db)
	if _, ok := d.users[u.Name]; ok {
		return fmt.Errorf("User \"%s@%s\" already exists", u.Name, db)
	}
	d.users[u.Name] = &memUser{password: u.Password, roles: append([]schema.Role(nil), u.Roles...)}
	return nil
}

func (m *MemoryAdmin) UpdateUser(ctx context.Context, db string, u schema.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateUser"); err != nil {
		return err
	}
	existing, ok := m.database(db).users[u.Name]
	if !ok {
		return fmt.Errorf("User %s@%s not found", u.Name, db)
	}
	existing.password = u.Password
	existing.roles = append([]schema.Role(nil), u.Roles...)
	return nil
}

func (m *MemoryAdmin) CollectionNames(ctx context.Context, db string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CollectionNames"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.database(db).collections))
	for n := range m.database(db).collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryAdmin) CreateCollection(ctx context.Context, db, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateCollection"); err != nil {
		return err
	}
	d := m.database(db)
	if _, ok := d.collections[name]; ok {
		return fmt.Errorf("Collection %s.%s already exists.", db, name)
	}
	d.collections[name] = []schema.Index{{Name: "_id_", Keys: []schema.Key{schema.Asc("_id")}}}
	return nil
}

func (m *MemoryAdmin) ListIndexes(ctx context.Context, db, collection string) ([]schema.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListIndexes"); err != nil {
		return nil, err
	}
	idx, ok := m.database(db).collections[collection]
	if !ok {
		return nil, fmt.Errorf("ns does not exist: %s.%s", db, collection)
	}
	return append([]schema.Index(nil), idx...), nil
}

func (m *MemoryAdmin) CreateIndex(ctx context.Context, db, collection string, idx schema.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateIndex"); err != nil {
		return err
	}
	d := m.database(db)
	// like the server, creating an index implicitly creates the collection
	if _, ok := d.collections[collection]; !ok {
		d.collections[collection] = []schema.Index{{Name: "_id_", Keys: []schema.Key{schema.Asc("_id")}}}
	}
	for _, e := range d.collections[collection] {
		if e.Name == idx.Name {
			if e.SameKeys(idx) && e.SameTTL(idx) {
				return nil
			}
			return fmt.Errorf("An existing index has the same name as the requested index: %s", idx.Name)
		}
	}
	d.collections[collection] = append(d.collections[collection], copyIndex(idx))
	return nil
}

func (m *MemoryAdmin) SetIndexExpiry(ctx context.Context, db, collection, name string, seconds int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SetIndexExpiry"); err != nil {
		return err
	}
	indexes := m.database(db).collections[collection]
	for n := range indexes {
		if indexes[n].Name == name {
			if indexes[n].ExpireAfterSeconds == nil {
				return fmt.Errorf("no expireAfterSeconds field to update on index %s", name)
			}
			secs := seconds
			indexes[n].ExpireAfterSeconds = &secs
			return nil
		}
	}
	return fmt.Errorf("cannot find index %s for ns %s.%s", name, db, collection)
}

func copyIndex(idx schema.Index) schema.Index {
	out := schema.Index{Name: idx.Name, Keys: append([]schema.Key(nil), idx.Keys...)}
	if idx.ExpireAfterSeconds != nil {
		secs := *idx.ExpireAfterSeconds
		out.ExpireAfterSeconds = &secs
	}
	return out
}

var _ Admin = (*MemoryAdmin)(nil)
