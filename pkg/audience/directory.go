package audience

import (
	"context"
	"slices"
	"sync"
)

// Directory is the read side of the external user directory.
type Directory interface {
	ResolveRoleMembers(ctx context.Context, role string) ([]string, error)
	ResolveGroupMembers(ctx context.Context, group string) ([]string, error)
}

// MemoryDirectory serves role and group membership from memory. Unknown
// roles and groups have no members.
type MemoryDirectory struct {
	mu     sync.RWMutex
	roles  map[string][]string
	groups map[string][]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		roles:  make(map[string][]string),
		groups: make(map[string][]string),
	}
}

func (d *MemoryDirectory) SetRole(role string, userIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[role] = slices.Clone(userIDs)
}

func (d *MemoryDirectory) SetGroup(group string, userIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups[group] = slices.Clone(userIDs)
}

func (d *MemoryDirectory) ResolveRoleMembers(_ context.Context, role string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.roles[role]), nil
}

func (d *MemoryDirectory) ResolveGroupMembers(_ context.Context, group string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.groups[group]), nil
}
