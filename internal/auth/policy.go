package auth

import (
	"sort"
	"strings"
)

// Policy is the allow-list of roles that may use administrative routes.
type Policy struct {
	privileged map[string]struct{}
}

func NewPolicy(roles ...string) Policy {
	p := Policy{privileged: make(map[string]struct{}, len(roles))}
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			p.privileged[role] = struct{}{}
		}
	}
	return p
}

func (p Policy) IsPrivileged(role string) bool {
	_, ok := p.privileged[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

func (p Policy) Roles() []string {
	roles := make([]string, 0, len(p.privileged))
	for role := range p.privileged {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
