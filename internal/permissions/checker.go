package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPermission is returned for identifiers missing from the catalog.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularRequirement is returned when Requires entries loop back on themselves.
	ErrCircularRequirement = errors.New("permission: circular requirement")
)

// Checker resolves role grants once at construction and answers lookups from
// the resulting per-role permission sets.
type Checker struct {
	known map[string]struct{}
	roles map[string]map[string]struct{}
}

// NewChecker builds a checker over the notification catalog. Every granted
// permission must exist in the catalog.
func NewChecker(grants map[string][]string) (*Checker, error) {
	return newChecker(catalog, grants)
}

func newChecker(defs []Definition, grants map[string][]string) (*Checker, error) {
	if len(grants) == 0 {
		return nil, errors.New("permission checker: at least one role grant is required")
	}

	index, err := indexDefinitions(defs)
	if err != nil {
		return nil, err
	}

	c := &Checker{
		known: make(map[string]struct{}, len(index)),
		roles: make(map[string]map[string]struct{}, len(grants)),
	}
	for id := range index {
		c.known[id] = struct{}{}
	}

	for role, ids := range grants {
		role = normaliseRole(role)
		if role == "" {
			return nil, errors.New("permission checker: role name is required")
		}
		held := c.roles[role]
		if held == nil {
			held = make(map[string]struct{})
			c.roles[role] = held
		}
		for _, id := range ids {
			if err := grant(index, held, strings.TrimSpace(id)); err != nil {
				return nil, fmt.Errorf("role %s: %w", role, err)
			}
		}
	}

	// Drop grants whose requirements the role does not hold.
	for _, held := range c.roles {
		for id := range held {
			if !satisfied(index, held, id) {
				delete(held, id)
			}
		}
	}
	return c, nil
}

// Check reports whether any of roles holds permissionID.
func (c *Checker) Check(ctx context.Context, roles []string, permissionID string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c == nil {
		return false, errors.New("permission checker: not configured")
	}

	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}
	if _, ok := c.known[permissionID]; !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	for _, role := range roles {
		if _, ok := c.roles[normaliseRole(role)][permissionID]; ok {
			return true, nil
		}
	}
	return false, nil
}

func indexDefinitions(defs []Definition) (map[string]Definition, error) {
	index := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if _, dup := index[def.ID]; dup || def.ID == "" {
			return nil, fmt.Errorf("permission: invalid or duplicate id %q", def.ID)
		}
		index[def.ID] = def
	}

	for _, def := range defs {
		for _, ref := range append(append([]string(nil), def.Requires...), def.Implies...) {
			if _, ok := index[ref]; !ok {
				return nil, fmt.Errorf("%w %q referenced by %s", ErrUnknownPermission, ref, def.ID)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(index))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w at %s", ErrCircularRequirement, id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, req := range index[id].Requires {
			if err := visit(req); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, def := range defs {
		if err := visit(def.ID); err != nil {
			return nil, err
		}
	}
	return index, nil
}

// grant adds id and everything it implies to held.
func grant(index map[string]Definition, held map[string]struct{}, id string) error {
	def, ok := index[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownPermission, id)
	}
	if _, exists := held[id]; exists {
		return nil
	}
	held[id] = struct{}{}
	for _, implied := range def.Implies {
		if err := grant(index, held, implied); err != nil {
			return err
		}
	}
	return nil
}

func satisfied(index map[string]Definition, held map[string]struct{}, id string) bool {
	for _, req := range index[id].Requires {
		if _, ok := held[req]; !ok || !satisfied(index, held, req) {
			return false
		}
	}
	return true
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
