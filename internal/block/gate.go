package block

import (
	"strconv"
	"strings"
)

// Result is an access decision.
type Result int

const (
	Forbidden Result = iota
	Allowed
)

func (r Result) String() string {
	if r == Allowed {
		return "allowed"
	}
	return "forbidden"
}

// IsAllowed reports whether r is Allowed.
func (r Result) IsAllowed() bool { return r == Allowed }

// AccessGate decides whether an account may see the add link for one
// content type.
type AccessGate struct {
	Type   ContentType
	Config SiteConfig
}

// Evaluate returns Allowed only if a group is in context, the group grants the
// account the group-level creation permission, the account holds the
// site-wide creation permission, and public visibility is not disabled for a
// public group (unless the account can override it).
func (g AccessGate) Evaluate(account Account, group Group) Result {
	if group == nil || account == nil {
		return Forbidden
	}
	if !group.HasPermission(g.Type.GroupPermission(), account) || !account.HasPermission(g.Type.AccountPermission()) {
		return Forbidden
	}
	if group.GroupType() == PublicGroupType &&
		publicVisibilityDisabled(g.Config) &&
		!account.HasPermission(OverridePublicVisibilityPermission) {
		return Forbidden
	}
	return Allowed
}

// publicVisibilityDisabled is true only for a value that parses to exactly 1.
func publicVisibilityDisabled(cfg SiteConfig) bool {
	if cfg == nil {
		return false
	}
	v, ok := cfg.Get(DisablePublicVisibilityKey)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return err == nil && n == 1
}
