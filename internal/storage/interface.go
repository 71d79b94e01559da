package storage

import (
	"context"

	"github.com/osintlab/socialscope/internal/models"
)

// ProfileImage is one stored profile picture reference, used as a matcher
// candidate by the reverse image search.
type ProfileImage struct {
	Platform string
	Username string
	Name     string
	URL      string
}

// Stats holds aggregate counts for the UI home page.
type Stats struct {
	Platforms   []string
	UniqueUsers int
	TotalPosts  int
}

// Store defines the contract for the relational store backing the pipeline
// and the web UI.
type Store interface {
	// Migrate creates missing tables and adds any missing canonical post
	// columns. It is idempotent and never drops or renames.
	Migrate(ctx context.Context) error

	// SavePosts appends posts to the store and returns how many rows were
	// written. Individual insert failures are logged and skipped.
	SavePosts(ctx context.Context, posts []models.Post) (int, error)

	// UpsertProfile writes the current row for (platform, username),
	// overwriting all tracked fields, and appends one history snapshot.
	// Callers pre-merge against the stored profile so that known fields
	// are not blanked by an empty observation.
	UpsertProfile(ctx context.Context, profile models.UserProfile) error

	// GetProfile returns the current profile row, or nil when absent.
	GetProfile(ctx context.Context, platform, username string) (*models.UserProfile, error)

	// ProfileHistoryCount returns the number of history snapshots recorded
	// for (platform, username).
	ProfileHistoryCount(ctx context.Context, platform, username string) (int, error)

	// ListPosts returns all posts most-recent-first, soft-joined with
	// profile follower counts and bio where a profile exists.
	ListPosts(ctx context.Context) ([]models.Post, error)

	// SearchPosts returns posts whose name, username, email or profile
	// picture URL contains the query substring, case-insensitively.
	SearchPosts(ctx context.Context, query string) ([]models.Post, error)

	// PostsByUser returns up to limit posts for one identity,
	// most-recent-first.
	PostsByUser(ctx context.Context, platform, username string, limit int) ([]models.Post, error)

	// ListProfileImages returns every profile with a non-empty picture URL.
	ListProfileImages(ctx context.Context) ([]ProfileImage, error)

	// Stats returns aggregate counts for the UI.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}
