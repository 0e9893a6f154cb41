package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GroupContent is a node posted into a group through a group content plugin.
type GroupContent struct {
	ID        string    `db:"id"`
	GroupID   string    `db:"group_id"`
	PluginID  string    `db:"plugin_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	AuthorID  string    `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ContentStore persists group content.
type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Create stores a content item. The title must be non-empty after trimming.
func (s *ContentStore) Create(ctx context.Context, groupID, pluginID, authorID, title, body string) (*GroupContent, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	c := &GroupContent{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		PluginID:  pluginID,
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO group_content (id, group_id, plugin_id, title, body, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.GroupID, c.PluginID, c.Title, c.Body, c.AuthorID, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create group content: %w", err)
	}
	return c, nil
}

// ListByGroup returns the group's content, newest first.
func (s *ContentStore) ListByGroup(ctx context.Context, groupID string) ([]*GroupContent, error) {
	var items []*GroupContent
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(`
		SELECT * FROM group_content WHERE group_id = ? ORDER BY created_at DESC
	`), groupID)
	if err != nil {
		return nil, err
	}
	return items, nil
}
