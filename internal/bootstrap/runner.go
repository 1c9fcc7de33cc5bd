package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/common-server/server-bootstrap/internal/models"
	"github.com/common-server/server-bootstrap/internal/schema"
	"github.com/common-server/server-bootstrap/pkg/logger"
	"github.com/common-server/server-bootstrap/pkg/metrics"
)

var (
	ErrUserExists    = errors.New("application user already exists")
	ErrIndexConflict = errors.New("index conflicts with an existing index")
)

// UserPolicy decides what happens when the application user already exists.
type UserPolicy string

const (
	UserSkip   UserPolicy = "skip"
	UserUpdate UserPolicy = "update"
	UserFail   UserPolicy = "fail"
)

// Outcome of a single step.
type Outcome string

const (
	Created Outcome = "created"
	Exists  Outcome = "exists"
	Updated Outcome = "updated"
)

// Step kinds.
const (
	StepUser       = "user"
	StepCollection = "collection"
	StepIndex      = "index"
)

// AuditAction is the action of the audit entry written for every run.
const AuditAction = "SCHEMA_BOOTSTRAP"

// AuditRecorder persists the audit entry of a run.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

type StepResult struct {
	Kind       string  `json:"kind"`
	Collection string  `json:"collection,omitempty"`
	Name       string  `json:"name"`
	Outcome    Outcome `json:"outcome"`
}

// Result describes what a run did, step by step.
type Result struct {
	RunID      string       `json:"runId"`
	Database   string       `json:"database"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Steps      []StepResult `json:"steps"`
}

// Count returns the number of steps of kind with the given outcome.
func (r *Result) Count(kind string, o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Kind == kind && s.Outcome == o {
			n++
		}
	}
	return n
}

// Changed reports whether the run modified anything.
func (r *Result) Changed() bool {
	for _, s := range r.Steps {
		if s.Outcome != Exists {
			return true
		}
	}
	return false
}

func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

func (r *Result) add(kind, collection, name string, o Outcome) {
	r.Steps = append(r.Steps, StepResult{Kind: kind, Collection: collection, Name: name, Outcome: o})
	metrics.BootstrapSteps.WithLabelValues(kind, string(o)).Inc()
	if collection != "" {
		logger.Infof("%s %s.%s: %s", kind, collection, name, o)
	} else {
		logger.Infof("%s %s: %s", kind, name, o)
	}
}

// Runner applies a plan through an Admin.
type Runner struct {
	admin    Admin
	policy   UserPolicy
	recorder AuditRecorder
	actor    string
	now      func() time.Time
}

type Option func(*Runner)

func WithUserPolicy(p UserPolicy) Option { return func(r *Runner) { r.policy = p } }

// WithAuditRecorder records every run, successful or not.
func WithAuditRecorder(rec AuditRecorder) Option { return func(r *Runner) { r.recorder = rec } }

// WithActor sets the userId written to the audit entry.
func WithActor(actor string) Option { return func(r *Runner) { r.actor = actor } }

func NewRunner(admin Admin, opts ...Option) *Runner {
	r := &Runner{admin: admin, policy: UserSkip, actor: "server-bootstrap", now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run ensures the user, collections and indexes of the plan exist. Steps run
// in declaration order and the first failure stops the run; the partial
// result is returned alongside the error.
func (r *Runner) Run(ctx context.Context, plan schema.Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString(), Database: plan.Database, StartedAt: r.now()}
	logger.Infof("bootstrap %s: database=%s user=%s collections=%d indexes=%d", res.RunID, plan.Database, plan.User.Name, len(plan.Collections), plan.IndexCount())

	err := r.apply(ctx, plan, res)
	res.FinishedAt = r.now()
	metrics.BootstrapDuration.Observe(res.Duration().Seconds())
	r.audit(ctx, plan, res, err)
	if err != nil {
		logger.Errorf("bootstrap %s failed after %s: %v", res.RunID, res.Duration(), err)
		return res, err
	}
	logger.Infof("MongoDB initialized successfully (database=%s changed=%v in %s)", plan.Database, res.Changed(), res.Duration())
	return res, nil
}

func (r *Runner) apply(ctx context.Context, plan schema.Plan, res *Result) error {
	if err := r.ensureUser(ctx, plan, res); err != nil {
		return err
	}
	names, err := r.admin.CollectionNames(ctx, plan.Database)
	if err != nil {
		return fmt.Errorf("list collections of %s: %w", plan.Database, err)
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}
	for _, c := range plan.Collections {
		if err := r.ensureCollection(ctx, plan.Database, c, existing[c.Name], res); err != nil {
			return err
		}
		if err := r.ensureIndexes(ctx, plan.Database, c, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ensureUser(ctx context.Context, plan schema.Plan, res *Result) error {
	u := plan.User
	info, err := r.admin.LookupUser(ctx, plan.Database, u.Name)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", u.Name, err)
	}
	if info == nil {
		if err := r.admin.CreateUser(ctx, plan.Database, u); err != nil {
			return fmt.Errorf("create user %s: %w", u.Name, err)
		}
		res.add(StepUser, "", u.Name, Created)
		return nil
	}

	switch r.policy {
	case UserFail:
		return fmt.Errorf("%w: %s@%s", ErrUserExists, u.Name, plan.Database)
	case UserUpdate:
		if err := r.admin.UpdateUser(ctx, plan.Database, u); err != nil {
			return fmt.Errorf("update user %s: %w", u.Name, err)
		}
		res.add(StepUser, "", u.Name, Updated)
	default:
		if !sameRoles(info.Roles, u.Roles) {
			logger.Warnf("user %s exists with roles %v, plan wants %v; leaving it untouched", u.Name, info.Roles, u.Roles)
		}
		res.add(StepUser, "", u.Name, Exists)
	}
	return nil
}

func (r *Runner) ensureCollection(ctx context.Context, db string, c schema.Collection, exists bool, res *Result) error {
	if exists {
		res.add(StepCollection, "", c.Name, Exists)
		return nil
	}
	if err := r.admin.CreateCollection(ctx, db, c.Name); err != nil {
		return fmt.Errorf("create collection %s: %w", c.Name, err)
	}
	res.add(StepCollection, "", c.Name, Created)
	return nil
}

func (r *Runner) ensureIndexes(ctx context.Context, db string, c schema.Collection, res *Result) error {
	current, err := r.admin.ListIndexes(ctx, db, c.Name)
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", c.Name, err)
	}
	for _, want := range c.Indexes {
		o, err := r.ensureIndex(ctx, db, c.Name, want, current)
		if err != nil {
			return err
		}
		res.add(StepIndex, c.Name, want.Name, o)
	}
	return nil
}

func (r *Runner) ensureIndex(ctx context.Context, db, collection string, want schema.Index, current []schema.Index) (Outcome, error) {
	for _, have := range current {
		switch {
		case have.Name == want.Name:
			if !have.SameKeys(want) {
				return "", fmt.Errorf("%w: %s.%s has different keys", ErrIndexConflict, collection, want.Name)
			}
			if have.SameTTL(want) {
				return Exists, nil
			}
			if have.ExpireAfterSeconds == nil || want.ExpireAfterSeconds == nil {
				return "", fmt.Errorf("%w: %s.%s differs in TTL presence", ErrIndexConflict, collection, want.Name)
			}
			if err := r.admin.SetIndexExpiry(ctx, db, collection, want.Name, *want.ExpireAfterSeconds); err != nil {
				return "", fmt.Errorf("update ttl of %s.%s: %w", collection, want.Name, err)
			}
			return Updated, nil
		case have.SameKeys(want):
			// the server refuses a second index on the same keys
			if have.SameTTL(want) {
				logger.Warnf("index %s.%s already exists as %s", collection, want.Name, have.Name)
				return Exists, nil
			}
			return "", fmt.Errorf("%w: %s.%s has the keys of %s with other options", ErrIndexConflict, collection, want.Name, have.Name)
		}
	}
	if err := r.admin.CreateIndex(ctx, db, collection, want); err != nil {
		return "", fmt.Errorf("create index %s on %s: %w", want.Name, collection, err)
	}
	return Created, nil
}

func (r *Runner) audit(ctx context.Context, plan schema.Plan, res *Result, runErr error) {
	if r.recorder == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:      r.actor,
		Action:      AuditAction,
		Resource:    "database:" + plan.Database,
		Description: fmt.Sprintf("run %s: %d steps", res.RunID, len(res.Steps)),
		Args:        []string{"user=" + plan.User.Name, "password=" + plan.User.Password, "policy=" + string(r.policy)},
		Outcome:     models.OutcomeSuccess,
		DurationMs:  res.Duration().Milliseconds(),
		Timestamp:   res.StartedAt,
	}
	if runErr != nil {
		entry.Outcome = models.OutcomeFailed
		entry.Error = runErr.Error()
	}
	if err := r.recorder.Record(ctx, entry); err != nil {
		logger.Warnf("bootstrap %s: audit entry not recorded: %v", res.RunID, err)
	}
}

func sameRoles(a, b []schema.Role) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
