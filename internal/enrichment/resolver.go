package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"
)

// Resolver fetches canonical user profiles from per-platform data sources.
// Resolve is a total function: whatever goes wrong, the caller always gets
// a well-formed profile, degraded to the empty sentinel on failure, and the
// pipeline never aborts because one lookup failed.
type Resolver struct {
	cfg    *config.Config
	client *resty.Client
	api    endpoints
}

// fetchFunc is one per-platform strategy: a single bounded-timeout call
// mapping vendor fields into the canonical profile shape.
type fetchFunc func(ctx context.Context, username string) (models.UserProfile, Outcome)

// NewResolver builds a resolver with the retry policy from cfg: a fixed
// retry budget with exponential backoff, applied only to GET failures on
// transient statuses. The client is constructed here and injected into
// every strategy, so the policy is overridable per call site in tests.
func NewResolver(cfg *config.Config) *Resolver {
	return NewResolverWithClient(cfg, newRetryingClient(cfg))
}

// NewResolverWithClient builds a resolver around an existing client.
func NewResolverWithClient(cfg *config.Config, client *resty.Client) *Resolver {
	return &Resolver{cfg: cfg, client: client, api: defaultEndpoints(cfg)}
}

func newRetryingClient(cfg *config.Config) *resty.Client {
	return resty.New().
		SetTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second).
		SetHeader("User-Agent", "socialscope/1.0").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitSeconds) * time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return transientStatuses[r.StatusCode()]
		})
}

// Resolve returns the canonical profile for (platform, username). Unknown
// platforms, empty usernames and every flavor of fetch failure yield the
// empty sentinel with platform and username preserved.
func (r *Resolver) Resolve(ctx context.Context, platform, username string) models.UserProfile {
	platform = strings.ToLower(strings.TrimSpace(platform))

	if username == "" || platform == "" {
		return models.EmptyProfile(platform, username)
	}

	strategies := map[string]fetchFunc{
		"twitter":   r.fetchTwitter,
		"instagram": r.fetchInstagram,
		"facebook":  r.fetchFacebook,
		"tiktok":    r.fetchTikTok,
		"github":    r.fetchGitHub,
		"reddit":    r.fetchReddit,
		"mastodon":  r.fetchMastodon,
	}

	fetch, ok := strategies[platform]
	if !ok {
		logrus.Debugf("Unsupported platform for enrichment: %s", platform)
		return models.EmptyProfile(platform, username)
	}

	profile, outcome := fetch(ctx, username)
	if outcome != OutcomeSuccess {
		logrus.Warnf("Profile lookup failed for %s/%s (%s), using empty sentinel", platform, username, outcome)
		return models.EmptyProfile(platform, username)
	}

	profile.Platform = platform
	profile.LastUpdated = time.Now()
	return profile
}
