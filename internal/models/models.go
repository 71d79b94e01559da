package models

import "time"

// Sentiment is the 3-way polarity label attached to a post after scoring.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// RawRecord is one loosely-shaped item as emitted by a platform collector.
// Every key is optional; collectors for different platforms populate
// different subsets and the normalizer resolves the aliases.
type RawRecord map[string]string

// Post is one observed piece of content, normalized into the common schema.
// Timestamp is kept as the raw vendor string (Unix epoch, ISO 8601, or
// whatever the platform emitted) and is never parsed.
type Post struct {
	Platform   string    `json:"platform"`
	User       string    `json:"user"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profile_pic"`
	Timestamp  string    `json:"timestamp"`
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	Sentiment  Sentiment `json:"sentiment,omitempty"` // empty until labeled

	// Populated on read paths via the soft join to user_details.
	Followers int    `json:"followers,omitempty"`
	Following int    `json:"following,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// UserProfile is the current known state of one (platform, username)
// identity. Unknown text fields hold the empty string, unknown counts zero.
type UserProfile struct {
	Platform    string    `json:"platform"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ProfilePic  string    `json:"profile_pic"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	LastUpdated time.Time `json:"last_updated"`
}

// EmptyProfile returns the sentinel profile for (platform, username):
// all text fields empty, counts zero, LastUpdated set to now. It is what
// the enrichment resolver degrades to on any failure.
func EmptyProfile(platform, username string) UserProfile {
	return UserProfile{
		Platform:    platform,
		Username:    username,
		LastUpdated: time.Now(),
	}
}

// Merge overlays incoming onto p, keeping p's value wherever the incoming
// field is empty or zero. Fields never regress to blank when new data is
// missing; platform, username and LastUpdated always come from incoming.
func (p UserProfile) Merge(incoming UserProfile) UserProfile {
	merged := incoming
	if merged.Name == "" {
		merged.Name = p.Name
	}
	if merged.Email == "" {
		merged.Email = p.Email
	}
	if merged.ProfilePic == "" {
		merged.ProfilePic = p.ProfilePic
	}
	if merged.Bio == "" {
		merged.Bio = p.Bio
	}
	if merged.Location == "" {
		merged.Location = p.Location
	}
	if merged.Followers == 0 {
		merged.Followers = p.Followers
	}
	if merged.Following == 0 {
		merged.Following = p.Following
	}
	return merged
}

// RunReport summarizes one pipeline run for notifications and /metrics.
type RunReport struct {
	StartedAt         time.Time      `json:"started_at"`
	Duration          string         `json:"duration"`
	Collected         int            `json:"collected"`
	Stored            int            `json:"stored"`
	ProfilesEnriched  int            `json:"profiles_enriched"`
	PlatformBreakdown map[string]int `json:"platform_breakdown"`
	SentimentCounts   map[string]int `json:"sentiment_breakdown"`
	ErrorCount        int            `json:"error_count"`
}
