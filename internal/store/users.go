package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Site roles.
const (
	RoleAnonymous      = "anonymous"
	RoleUser           = "user"
	RoleContentManager = "content_manager"
	RoleAdmin          = "admin"
)

// User is a local account. It satisfies block.Account once its permissions
// are loaded by the UserStore.
type User struct {
	ID          string    `db:"id"`
	Provider    string    `db:"provider"`
	Subject     string    `db:"subject"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	permissions map[string]bool
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsAnonymous reports whether u is the stand-in for a visitor with no session.
func (u *User) IsAnonymous() bool {
	return u.ID == ""
}

// AccountID returns the user id, or "" for anonymous visitors.
func (u *User) AccountID() string {
	return u.ID
}

// HasPermission reports whether the user's role grants permission. Admins hold
// every permission.
func (u *User) HasPermission(permission string) bool {
	if u.IsAdmin() {
		return true
	}
	return u.permissions[permission]
}

// Permissions returns the granted permissions, unordered.
func (u *User) Permissions() []string {
	out := make([]string, 0, len(u.permissions))
	for p := range u.permissions {
		out = append(out, p)
	}
	return out
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert creates or updates a user record on OIDC login.
// adminEmail: if non-empty and matches email on INSERT, role is set to "admin".
// Returning users keep their role.
func (s *UserStore) Upsert(ctx context.Context, provider, subject, email, displayName, adminEmail string) (*User, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.GetContext(ctx, &id, s.db.Rebind(`SELECT id FROM users WHERE provider = ? AND subject = ?`), provider, subject)
	switch notFound(err) {
	case nil:
		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?
		`), email, displayName, now, id)
	case ErrNotFound:
		role := RoleUser
		if adminEmail != "" && email == adminEmail {
			role = RoleAdmin
		}
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO users (id, provider, subject, email, display_name, role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`), id, provider, subject, email, displayName, role, now, now)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the user with its role permissions loaded, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT * FROM users WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	if err := s.loadPermissions(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user matching email, or ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT * FROM users WHERE email = ?`), email); err != nil {
		return nil, notFound(err)
	}
	if err := s.loadPermissions(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Anonymous returns the account used for visitors without a session.
func (s *UserStore) Anonymous(ctx context.Context) (*User, error) {
	u := &User{Role: RoleAnonymous}
	if err := s.loadPermissions(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListAll returns all users ordered by display name.
func (s *UserStore) ListAll(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY display_name ASC`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole sets the role for the given user and returns the updated record.
func (s *UserStore) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`),
		role, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Grant adds permission to a site role. Granting twice is a no-op.
func (s *UserStore) Grant(ctx context.Context, role, permission string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO role_permissions (role, permission) VALUES (?, ?)`), role, permission)
	if isUniqueConstraintError(err) {
		return nil
	}
	return err
}

// Revoke removes permission from a site role.
func (s *UserStore) Revoke(ctx context.Context, role, permission string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM role_permissions WHERE role = ? AND permission = ?`), role, permission)
	return err
}

func (s *UserStore) loadPermissions(ctx context.Context, u *User) error {
	var perms []string
	err := s.db.SelectContext(ctx, &perms, s.db.Rebind(`SELECT permission FROM role_permissions WHERE role = ?`), u.Role)
	if err != nil {
		return fmt.Errorf("load permissions for role %s: %w", u.Role, err)
	}
	u.permissions = make(map[string]bool, len(perms))
	for _, p := range perms {
		u.permissions[p] = true
	}
	return nil
}
