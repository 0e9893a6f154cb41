package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/group-blocks/internal/block"
)

// Group roles. Anonymous and outsider are implied, never stored in
// group_members.
const (
	GroupRoleAnonymous = "anonymous"
	GroupRoleOutsider  = "outsider"
	GroupRoleMember    = "member"
	GroupRoleManager   = "manager"
)

// Group is a group with its membership and the role permissions of its type,
// loaded together so that permission checks need no further queries.
type Group struct {
	ID        string    `db:"id"`
	Type      string    `db:"type"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	members   map[string]string          // user id -> group role
	rolePerms map[string]map[string]bool // group role -> permissions
}

// GroupID implements block.Group.
func (g *Group) GroupID() string { return g.ID }

// GroupType implements block.Group.
func (g *Group) GroupType() string { return g.Type }

// RoleOf returns the group role account holds in g.
func (g *Group) RoleOf(account block.Account) string {
	if account == nil || account.AccountID() == "" {
		return GroupRoleAnonymous
	}
	if role, ok := g.members[account.AccountID()]; ok {
		return role
	}
	return GroupRoleOutsider
}

// HasPermission implements block.Group: the permission must be granted to the
// account's group role for this group's type.
func (g *Group) HasPermission(permission string, account block.Account) bool {
	return g.rolePerms[g.RoleOf(account)][permission]
}

// MemberCount returns the number of stored members.
func (g *Group) MemberCount() int { return len(g.members) }

// GroupStore manages groups, their members and group role permissions.
type GroupStore struct {
	db *sqlx.DB
}

func NewGroupStore(db *sqlx.DB) *GroupStore {
	return &GroupStore{db: db}
}

// Create inserts a group of the given type.
func (s *GroupStore) Create(ctx context.Context, groupType, label string) (*Group, error) {
	now := time.Now().UTC()
	g := &Group{ID: uuid.New().String(), Type: groupType, Label: label, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO social_groups (id, type, label, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`), g.ID, g.Type, g.Label, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return s.Load(ctx, g.ID)
}

// Load returns the group with membership and role permissions, or ErrNotFound.
func (s *GroupStore) Load(ctx context.Context, id string) (*Group, error) {
	var g Group
	if err := s.db.GetContext(ctx, &g, s.db.Rebind(`SELECT * FROM social_groups WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}

	var members []struct {
		UserID string `db:"user_id"`
		Role   string `db:"group_role"`
	}
	if err := s.db.SelectContext(ctx, &members, s.db.Rebind(`
		SELECT user_id, group_role FROM group_members WHERE group_id = ?
	`), id); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	g.members = make(map[string]string, len(members))
	for _, m := range members {
		g.members[m.UserID] = m.Role
	}

	var perms []struct {
		Role       string `db:"group_role"`
		Permission string `db:"permission"`
	}
	if err := s.db.SelectContext(ctx, &perms, s.db.Rebind(`
		SELECT group_role, permission FROM group_role_permissions WHERE group_type = ?
	`), g.Type); err != nil {
		return nil, fmt.Errorf("load group permissions: %w", err)
	}
	g.rolePerms = map[string]map[string]bool{}
	for _, p := range perms {
		if g.rolePerms[p.Role] == nil {
			g.rolePerms[p.Role] = map[string]bool{}
		}
		g.rolePerms[p.Role][p.Permission] = true
	}
	return &g, nil
}

// List returns all groups ordered by label, without membership.
func (s *GroupStore) List(ctx context.Context) ([]*Group, error) {
	var groups []*Group
	if err := s.db.SelectContext(ctx, &groups, `SELECT * FROM social_groups ORDER BY label ASC`); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember adds userID to the group with role. Returns ErrAlreadyMember if
// already present.
func (s *GroupStore) AddMember(ctx context.Context, groupID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO group_members (group_id, user_id, group_role) VALUES (?, ?, ?)
	`), groupID, userID, role)
	if isUniqueConstraintError(err) {
		return ErrAlreadyMember
	}
	return err
}

// RemoveMember deletes the membership; removing a non-member is a no-op.
func (s *GroupStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM group_members WHERE group_id = ? AND user_id = ?
	`), groupID, userID)
	return err
}

// Grant adds permission to a group role for every group of groupType.
// Granting twice is a no-op.
func (s *GroupStore) Grant(ctx context.Context, groupType, role, permission string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO group_role_permissions (group_type, group_role, permission) VALUES (?, ?, ?)
	`), groupType, role, permission)
	if isUniqueConstraintError(err) {
		return nil
	}
	return err
}

// Revoke removes permission from a group role for groupType.
func (s *GroupStore) Revoke(ctx context.Context, groupType, role, permission string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM group_role_permissions WHERE group_type = ? AND group_role = ? AND permission = ?
	`), groupType, role, permission)
	return err
}

// Touch bumps updated_at; pages tagged with the group's cache tag are stale
// after this.
func (s *GroupStore) Touch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE social_groups SET updated_at = ? WHERE id = ?`),
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
