package bootstrap

import (
	"context"
	"fmt"

	"github.com/common-server/server-bootstrap/internal/schema"
)

// Drift is one difference between a plan and a live instance.
type Drift struct {
	Kind       string `json:"kind"`
	Collection string `json:"collection,omitempty"`
	Name       string `json:"name"`
	Detail     string `json:"detail"`
}

func (d Drift) String() string {
	if d.Collection != "" {
		return fmt.Sprintf("%s %s.%s: %s", d.Kind, d.Collection, d.Name, d.Detail)
	}
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Name, d.Detail)
}

// Verify compares the instance with the plan without changing anything. The
// user must hold exactly the planned role; collections and indexes must
// exist with the exact keys, order and TTL, under the planned name or
// another one. Extra indexes are ignored.
func Verify(ctx context.Context, admin Admin, plan schema.Plan) ([]Drift, error) {
	var drift []Drift

	u, err := admin.LookupUser(ctx, plan.Database, plan.User.Name)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", plan.User.Name, err)
	}
	switch {
	case u == nil:
		drift = append(drift, Drift{Kind: StepUser, Name: plan.User.Name, Detail: "missing"})
	case !sameRoles(u.Roles, plan.User.Roles):
		drift = append(drift, Drift{Kind: StepUser, Name: plan.User.Name, Detail: fmt.Sprintf("roles %v, want %v", u.Roles, plan.User.Roles)})
	}

	names, err := admin.CollectionNames(ctx, plan.Database)
	if err != nil {
		return nil, fmt.Errorf("list collections of %s: %w", plan.Database, err)
	}
	existing := map[string]bool{}
	for _, n := range names {
		existing[n] = true
	}

	for _, c := range plan.Collections {
		if !existing[c.Name] {
			drift = append(drift, Drift{Kind: StepCollection, Name: c.Name, Detail: "missing"})
			for _, idx := range c.Indexes {
				drift = append(drift, Drift{Kind: StepIndex, Collection: c.Name, Name: idx.Name, Detail: "missing"})
			}
			continue
		}
		current, err := admin.ListIndexes(ctx, plan.Database, c.Name)
		if err != nil {
			return nil, fmt.Errorf("list indexes of %s: %w", c.Name, err)
		}
		byName := make(map[string]schema.Index, len(current))
		for _, idx := range current {
			byName[idx.Name] = idx
		}
		for _, want := range c.Indexes {
			have, ok := byName[want.Name]
			if !ok {
				// an index on the same keys under another name satisfies the plan
				have, ok = findByKeys(current, want)
			}
			switch {
			case !ok:
				drift = append(drift, Drift{Kind: StepIndex, Collection: c.Name, Name: want.Name, Detail: "missing"})
			case !have.SameKeys(want):
				drift = append(drift, Drift{Kind: StepIndex, Collection: c.Name, Name: want.Name, Detail: fmt.Sprintf("keys %v, want %v", have.Keys, want.Keys)})
			case !have.SameTTL(want):
				drift = append(drift, Drift{Kind: StepIndex, Collection: c.Name, Name: want.Name, Detail: fmt.Sprintf("ttl %s, want %s", ttlString(have), ttlString(want))})
			}
		}
	}
	return drift, nil
}

func findByKeys(current []schema.Index, want schema.Index) (schema.Index, bool) {
	for _, idx := range current {
		if idx.SameKeys(want) {
			return idx, true
		}
	}
	return schema.Index{}, false
}

func ttlString(idx schema.Index) string {
	if d, ok := idx.TTL(); ok {
		return d.String()
	}
	return "none"
}
