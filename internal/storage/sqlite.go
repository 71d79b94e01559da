package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Serializes profile upserts so concurrent writes to the same
	// (platform, username) key keep the last-write-wins plus history
	// contract well-defined.
	upsertMu sync.Mutex
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// postColumns are the canonical social_media_posts columns managed by the
// additive migration. Missing ones are added, nothing is ever dropped.
var postColumns = []struct {
	name string
	typ  string
}{
	{"platform", "TEXT"},
	{"user", "TEXT"},
	{"username", "TEXT"},
	{"name", "TEXT"},
	{"email", "TEXT"},
	{"profile_pic", "TEXT"},
	{"timestamp", "TEXT"},
	{"text", "TEXT"},
	{"url", "TEXT"},
	{"sentiment", "TEXT"},
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if absent and adds any canonical post column
// found missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS social_media_posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT,
			"user" TEXT,
			username TEXT,
			name TEXT,
			email TEXT,
			profile_pic TEXT,
			timestamp TEXT,
			text TEXT,
			url TEXT,
			sentiment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_details (
			platform TEXT NOT NULL,
			username TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			profile_pic TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			followers INTEGER NOT NULL DEFAULT 0,
			following INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL,
			PRIMARY KEY (platform, username)
		)`,
		`CREATE TABLE IF NOT EXISTS user_details_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			username TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			profile_pic TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			followers INTEGER NOT NULL DEFAULT 0,
			following INTEGER NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return s.migratePostColumns(ctx)
}

// migratePostColumns adds any canonical column missing from
// social_media_posts. Databases created by earlier schema versions pick up
// new columns without losing rows.
func (s *SQLiteStore) migratePostColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(social_media_posts)`)
	if err != nil {
		return fmt.Errorf("failed to inspect post table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read column info: %w", err)
	}

	for _, col := range postColumns {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE social_media_posts ADD COLUMN %q %s`, col.name, col.typ)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.name, err)
		}
		logrus.Infof("Added missing column %s to social_media_posts", col.name)
	}

	return nil
}

// SavePosts appends every post as one new row. Inserts are best-effort:
// a failing row is logged and skipped, the rest of the batch proceeds.
func (s *SQLiteStore) SavePosts(ctx context.Context, posts []models.Post) (int, error) {
	stored := 0
	for _, p := range posts {
		if p.Username == "" && p.Name == "" && p.ProfilePic == "" {
			logrus.Warnf("Post from %s has no identifying user fields (url=%s)", p.Platform, p.URL)
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO social_media_posts
				(platform, "user", username, name, email, profile_pic, timestamp, text, url, sentiment)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Platform, p.User, p.Username, p.Name, p.Email, p.ProfilePic,
			p.Timestamp, p.Text, p.URL, coerceSentiment(p.Sentiment),
		)
		if err != nil {
			logrus.Errorf("Failed to insert post from %s: %v", p.Platform, err)
			continue
		}
		stored++
	}

	if stored < len(posts) {
		return stored, fmt.Errorf("stored %d of %d posts", stored, len(posts))
	}
	return stored, nil
}

// coerceSentiment maps the label to its stored value, or NULL for anything
// outside the known set. A malformed sentiment never rejects the insert.
func coerceSentiment(s models.Sentiment) sql.NullString {
	if !s.Valid() {
		return sql.NullString{}
	}
	return sql.NullString{String: string(s), Valid: true}
}

// UpsertProfile writes the current row for the profile's key and appends an
// immutable history snapshot, on both the insert and the update path.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p models.UserProfile) error {
	s.upsertMu.Lock()
	defer s.upsertMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_details
			(platform, username, name, email, profile_pic, bio, location, followers, following, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(platform, username) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			profile_pic = excluded.profile_pic,
			bio = excluded.bio,
			location = excluded.location,
			followers = excluded.followers,
			following = excluded.following,
			last_updated = excluded.last_updated`,
		p.Platform, p.Username, p.Name, p.Email, p.ProfilePic, p.Bio,
		p.Location, p.Followers, p.Following, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_details_history
			(platform, username, name, email, profile_pic, bio, location, followers, following, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Platform, p.Username, p.Name, p.Email, p.ProfilePic, p.Bio,
		p.Location, p.Followers, p.Following, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to append profile history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile upsert: %w", err)
	}
	return nil
}

// GetProfile returns the current profile row, or nil when absent.
func (s *SQLiteStore) GetProfile(ctx context.Context, platform, username string) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT platform, username, name, email, profile_pic, bio, location, followers, following, last_updated
		 FROM user_details WHERE platform = ? AND username = ?`,
		platform, username,
	).Scan(&p.Platform, &p.Username, &p.Name, &p.Email, &p.ProfilePic,
		&p.Bio, &p.Location, &p.Followers, &p.Following, &p.LastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ProfileHistoryCount(ctx context.Context, platform, username string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_details_history WHERE platform = ? AND username = ?`,
		platform, username,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count profile history: %w", err)
	}
	return count, nil
}

const joinedPostColumns = `
	p.platform, p."user", p.username, p.name, p.email, p.profile_pic,
	COALESCE(p.timestamp, ''), COALESCE(p.text, ''), COALESCE(p.url, ''),
	p.sentiment,
	COALESCE(u.followers, 0), COALESCE(u.following, 0), COALESCE(u.bio, '')`

// ListPosts returns all posts, most-recent-first, soft-joined with profile
// metadata. Posts without a matching profile come back with zeroed counts.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinedPostColumns+`
		FROM social_media_posts p
		LEFT JOIN user_details u
			ON p.username = u.username AND p.platform = u.platform
		ORDER BY p.timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return scanJoinedPosts(rows)
}

// SearchPosts performs the case-insensitive substring search over name,
// username, email and profile picture URL.
func (s *SQLiteStore) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinedPostColumns+`
		FROM social_media_posts p
		LEFT JOIN user_details u
			ON p.username = u.username AND p.platform = u.platform
		WHERE LOWER(p.name) LIKE LOWER(?)
		   OR LOWER(p.username) LIKE LOWER(?)
		   OR LOWER(p.email) LIKE LOWER(?)
		   OR LOWER(p.profile_pic) LIKE LOWER(?)
		ORDER BY p.timestamp DESC`,
		pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer rows.Close()

	return scanJoinedPosts(rows)
}

// PostsByUser returns up to limit posts for one identity, most-recent-first.
func (s *SQLiteStore) PostsByUser(ctx context.Context, platform, username string, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+joinedPostColumns+`
		FROM social_media_posts p
		LEFT JOIN user_details u
			ON p.username = u.username AND p.platform = u.platform
		WHERE p.platform = ? AND p.username = ?
		ORDER BY p.timestamp DESC
		LIMIT ?`,
		platform, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts by user: %w", err)
	}
	defer rows.Close()

	return scanJoinedPosts(rows)
}

func scanJoinedPosts(rows *sql.Rows) ([]models.Post, error) {
	var posts []models.Post
	for rows.Next() {
		var (
			p         models.Post
			user      sql.NullString
			username  sql.NullString
			name      sql.NullString
			email     sql.NullString
			pic       sql.NullString
			sentiment sql.NullString
		)
		if err := rows.Scan(&p.Platform, &user, &username, &name, &email, &pic,
			&p.Timestamp, &p.Text, &p.URL, &sentiment,
			&p.Followers, &p.Following, &p.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.User = user.String
		p.Username = username.String
		p.Name = name.String
		p.Email = email.String
		p.ProfilePic = pic.String
		p.Sentiment = models.Sentiment(sentiment.String)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// ListProfileImages returns every profile carrying a non-empty picture URL.
func (s *SQLiteStore) ListProfileImages(ctx context.Context) ([]ProfileImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT platform, username, name, profile_pic
		 FROM user_details
		 WHERE profile_pic IS NOT NULL AND profile_pic != ''
		 ORDER BY platform, username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile images: %w", err)
	}
	defer rows.Close()

	var images []ProfileImage
	for rows.Next() {
		var img ProfileImage
		if err := rows.Scan(&img.Platform, &img.Username, &img.Name, &img.URL); err != nil {
			return nil, fmt.Errorf("failed to scan profile image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profile images: %w", err)
	}
	return images, nil
}

// Stats returns the aggregate counts shown on the UI home page.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT platform FROM social_media_posts ORDER BY platform`)
	if err != nil {
		return stats, fmt.Errorf("failed to list platforms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return stats, fmt.Errorf("failed to scan platform: %w", err)
		}
		stats.Platforms = append(stats.Platforms, platform)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to read platforms: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT username) FROM social_media_posts`).Scan(&stats.UniqueUsers); err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM social_media_posts`).Scan(&stats.TotalPosts); err != nil {
		return stats, fmt.Errorf("failed to count posts: %w", err)
	}

	return stats, nil
}
