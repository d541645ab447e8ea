// Package credentials verifies webhook callers against a local registry of
// users, bcrypt password hashes and group membership.
package credentials

import (
	"context"
	"sync"

	"github.com/basti85goe/geobridge/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Checker verifies a caller's identity and group membership.
type Checker interface {
	// CheckCredentials reports whether user and pass form a valid pair.
	CheckCredentials(ctx context.Context, user, pass string) (bool, error)

	// CheckGroupMembership reports whether user belongs to group.
	CheckGroupMembership(ctx context.Context, user, group string) (bool, error)
}

// Registry is an in-process Checker backed by bcrypt hashes.
type Registry struct {
	mu     sync.RWMutex
	hashes map[string][]byte          // user -> bcrypt hash
	groups map[string]map[string]bool // group -> users
	logger logger.Logger
	cost   int
}

// NewRegistry creates an empty credential registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		hashes: make(map[string][]byte),
		groups: make(map[string]map[string]bool),
		logger: logger.Get().Named("credentials"),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureGroup creates the group if it does not exist. Idempotent.
func (r *Registry) EnsureGroup(ctx context.Context, group string) error {
	if group == "" {
		return ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[group]; ok {
		r.logger.Debug(ctx, "group already exists", logger.String("group", group))
		return nil
	}
	r.groups[group] = make(map[string]bool)
	r.logger.Warn(ctx, "group created", logger.String("group", group))
	return nil
}

// EnsureUser registers the user with the given password if not yet known.
// An existing user keeps their stored hash. Idempotent.
func (r *Registry) EnsureUser(ctx context.Context, user, pass string) error {
	if user == "" {
		return ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hashes[user]; ok {
		r.logger.Debug(ctx, "user already exists", logger.String("user", user))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), r.cost)
	if err != nil {
		return err
	}
	r.hashes[user] = hash
	r.logger.Warn(ctx, "user created", logger.String("user", user))
	return nil
}

// AssignUserToGroup adds the user to the group. Both must exist. Idempotent.
func (r *Registry) AssignUserToGroup(ctx context.Context, user, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hashes[user]; !ok {
		return ErrUnknownUser
	}
	members, ok := r.groups[group]
	if !ok {
		return ErrUnknownGroup
	}

	if members[user] {
		r.logger.Debug(ctx, "user already in group",
			logger.String("user", user),
			logger.String("group", group),
		)
		return nil
	}
	members[user] = true
	r.logger.Warn(ctx, "user assigned to group",
		logger.String("user", user),
		logger.String("group", group),
	)
	return nil
}

// CheckCredentials verifies pass against the stored bcrypt hash of user.
func (r *Registry) CheckCredentials(ctx context.Context, user, pass string) (bool, error) {
	r.mu.RLock()
	hash, ok := r.hashes[user]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil, nil
}

// CheckGroupMembership reports whether user belongs to group.
func (r *Registry) CheckGroupMembership(ctx context.Context, user, group string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups[group][user], nil
}

// Provision ensures group, user and membership in one startup pass,
// mirroring the bridge's boot sequence. Safe to call repeatedly.
func (r *Registry) Provision(ctx context.Context, group, user, pass string) error {
	if err := r.EnsureGroup(ctx, group); err != nil {
		return err
	}
	if err := r.EnsureUser(ctx, user, pass); err != nil {
		return err
	}
	return r.AssignUserToGroup(ctx, user, group)
}
