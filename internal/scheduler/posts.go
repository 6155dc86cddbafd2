package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Post statuses.
const (
	StatusScheduled = "scheduled"
	StatusPosted    = "posted"
	StatusFailed    = "failed"
)

var (
	ErrInvalidPost  = errors.New("invalid post")
	ErrPostNotFound = errors.New("post not found")
)

// Post is one scheduled publication for a signed-in account.
type Post struct {
	ID          string    `json:"id"`
	OpenID      string    `json:"open_id"`
	Content     string    `json:"content"`
	MediaURL    string    `json:"media_url,omitempty"`
	ScheduledAt time.Time `json:"scheduled_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostStore persists scheduled posts in the shared sqlite database.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a PostStore over an already migrated database.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// Create validates and stores a new post in the scheduled state, assigning
// its id and timestamps.
func (s *PostStore) Create(ctx context.Context, post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: post cannot be nil", ErrInvalidPost)
	}
	if post.Content == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidPost)
	}
	if post.OpenID == "" {
		return fmt.Errorf("%w: open_id cannot be empty", ErrInvalidPost)
	}
	if post.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time cannot be empty", ErrInvalidPost)
	}

	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.Status = StatusScheduled
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_posts (id, open_id, content, media_url, scheduled_time, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.OpenID, post.Content, post.MediaURL, post.ScheduledAt.UTC(), post.Status, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store post: %w", err)
	}
	return nil
}

// List returns all posts for an account, newest schedule first.
func (s *PostStore) List(ctx context.Context, openID string) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, open_id, content, media_url, scheduled_time, status, created_at, updated_at
		 FROM scheduled_posts WHERE open_id = ? ORDER BY scheduled_time DESC`, openID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// Due returns scheduled posts whose time has arrived.
func (s *PostStore) Due(ctx context.Context, now time.Time) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, open_id, content, media_url, scheduled_time, status, created_at, updated_at
		 FROM scheduled_posts WHERE status = ? AND scheduled_time <= ? ORDER BY scheduled_time`,
		StatusScheduled, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// UpdateStatus records the post's transition to posted or failed.
func (s *PostStore) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return nil
}

func scanPosts(rows *sql.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.OpenID, &p.Content, &p.MediaURL, &p.ScheduledAt, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}
