package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/osintlab/socialscope/internal/collectors"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/osintlab/socialscope/internal/storage"
	"github.com/sirupsen/logrus"
)

// ProfileResolver is the enrichment contract the pipeline depends on.
// Implementations are total functions: they never fail, only degrade.
type ProfileResolver interface {
	Resolve(ctx context.Context, platform, username string) models.UserProfile
}

// Archiver stores a raw snapshot of one run's labeled batch.
type Archiver interface {
	ArchiveBatch(ctx context.Context, posts []models.Post) error
}

// Notifier delivers the per-run summary to operators.
type Notifier interface {
	SendRunReport(report *models.RunReport) error
}

// platformOrder fixes the collection order so the global record budget
// cuts off the same platforms run over run.
var platformOrder = []string{
	"twitter", "reddit", "facebook", "instagram",
	"tiktok", "mastodon", "github", "snapchat",
}

// Service drives the aggregation pipeline: collect, normalize, enrich,
// clean, filter, label, persist. Every stage is best-effort per platform;
// no single collector, lookup or insert failure aborts a run.
type Service struct {
	cfg      *config.Config
	store    storage.Store
	resolver ProfileResolver
	archiver Archiver
	notifier Notifier
	detector LanguageDetector
	scorer   PolarityScorer
	sources  []collectors.Source

	mu         sync.RWMutex
	lastReport *models.RunReport
}

// NewService creates a pipeline service with the default platform
// collectors built from cfg credentials.
func NewService(cfg *config.Config, store storage.Store, resolver ProfileResolver,
	archiver Archiver, notifier Notifier, detector LanguageDetector, scorer PolarityScorer) *Service {
	s := &Service{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		archiver: archiver,
		notifier: notifier,
		detector: detector,
		scorer:   scorer,
	}
	s.initializeSources()
	return s
}

func (s *Service) initializeSources() {
	s.sources = []collectors.Source{
		collectors.NewTwitterCollector(s.cfg.RapidAPIKey, s.cfg.TwitterBearerToken),
		collectors.NewRedditCollector(s.cfg.RedditClientID, s.cfg.RedditClientSecret),
		collectors.NewFacebookCollector(s.cfg.RapidAPIKey),
		collectors.NewInstagramCollector(s.cfg.RapidAPIKey),
		collectors.NewTikTokCollector(s.cfg.RapidAPIKey),
		collectors.NewMastodonCollector(s.cfg.MastodonBaseURL, s.cfg.MastodonAccessToken),
		collectors.NewGitHubCollector(s.cfg.GitHubToken),
		collectors.NewSnapchatCollector(s.cfg.RapidAPIKey),
	}
}

// SetSources replaces the platform collectors. Used by tests.
func (s *Service) SetSources(sources []collectors.Source) {
	s.sources = sources
}

// Run executes one full pipeline pass.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()
	logrus.Info("Starting aggregation run")

	report := &models.RunReport{
		StartedAt:         start,
		PlatformBreakdown: make(map[string]int),
		SentimentCounts:   make(map[string]int),
	}

	posts := s.collect(ctx, report)
	logrus.Infof("Collected %d records, cleaning and enriching", len(posts))

	s.enrichUsers(ctx, posts, report)

	for i := range posts {
		posts[i].Text = CleanText(posts[i].Text)
	}
	posts = FilterLanguage(posts, s.detector, s.cfg.TargetLanguage)
	// collect already caps at the budget; this guard keeps the bound even
	// if a collector ignored its limit.
	if len(posts) > s.cfg.RecordBudget {
		posts = posts[:s.cfg.RecordBudget]
	}
	LabelSentiment(posts, s.scorer)

	stored, err := s.store.SavePosts(ctx, posts)
	if err != nil {
		// Persistence is best-effort per batch; the run carries on with
		// whatever made it in.
		logrus.Errorf("Post batch not fully stored: %v", err)
		report.ErrorCount++
	}

	if s.archiver != nil && len(posts) > 0 {
		if err := s.archiver.ArchiveBatch(ctx, posts); err != nil {
			logrus.Errorf("Failed to archive batch: %v", err)
			report.ErrorCount++
		}
	}

	report.Stored = stored
	report.Duration = time.Since(start).String()
	for _, p := range posts {
		report.PlatformBreakdown[p.Platform]++
		report.SentimentCounts[string(p.Sentiment)]++
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.SendRunReport(report); err != nil {
			logrus.Errorf("Failed to send run report: %v", err)
		}
	}

	logrus.Infof("Aggregation run completed in %v: %d stored, %d errors",
		time.Since(start), stored, report.ErrorCount)
	return nil
}

// collect walks the platforms in fixed order, normalizing as it goes, and
// stops once the global record budget is reached. A failing platform is
// logged and skipped.
func (s *Service) collect(ctx context.Context, report *models.RunReport) []models.Post {
	byName := make(map[string]collectors.Source, len(s.sources))
	for _, src := range s.sources {
		byName[src.Name()] = src
	}

	var posts []models.Post
	for _, platform := range platformOrder {
		source, ok := byName[platform]
		if !ok {
			continue
		}
		if !source.Enabled() {
			logrus.Debugf("Skipping %s: collector disabled (missing credentials)", platform)
			continue
		}

		query, ok := s.cfg.Queries[platform]
		if !ok {
			continue
		}

		remaining := s.cfg.RecordBudget - len(posts)
		if remaining <= 0 {
			break
		}

		raw, err := source.Fetch(ctx, query, remaining)
		if err != nil {
			logrus.Errorf("Error fetching %s: %v", platform, err)
			report.ErrorCount++
			continue
		}

		for _, record := range raw {
			if post, ok := Normalize(record, platform); ok {
				posts = append(posts, post)
			}
		}
		logrus.Infof("Collected %d records from %s", len(raw), platform)
	}

	if len(posts) > s.cfg.RecordBudget {
		posts = posts[:s.cfg.RecordBudget]
	}
	report.Collected = len(posts)
	return posts
}

// enrichUsers resolves each unique (platform, username) identity once per
// run and upserts the profile, merging with the stored row first so fields
// never regress to blank when a lookup degrades to the sentinel.
func (s *Service) enrichUsers(ctx context.Context, posts []models.Post, report *models.RunReport) {
	type userKey struct{ platform, username string }
	seen := make(map[userKey]bool)

	var keys []userKey
	for _, p := range posts {
		if p.Username == "" {
			continue
		}
		key := userKey{p.Platform, p.Username}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	var (
		wg       sync.WaitGroup
		enriched sync.Map
	)
	sem := make(chan struct{}, 4)

	for _, key := range keys {
		wg.Add(1)
		go func(k userKey) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			incoming := s.resolver.Resolve(ctx, k.platform, k.username)

			existing, err := s.store.GetProfile(ctx, k.platform, k.username)
			if err != nil {
				logrus.Errorf("Failed to load stored profile for %s/%s: %v", k.platform, k.username, err)
			}
			if existing != nil {
				incoming = existing.Merge(incoming)
			}

			if err := s.store.UpsertProfile(ctx, incoming); err != nil {
				logrus.Errorf("Failed to save profile for %s/%s: %v", k.platform, k.username, err)
				return
			}
			enriched.Store(k, true)
		}(key)
	}
	wg.Wait()

	count := 0
	enriched.Range(func(_, _ any) bool {
		count++
		return true
	})
	report.ProfilesEnriched = count
}

// Metrics returns the last run's report as JSON for the /metrics endpoint.
func (s *Service) Metrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastReport == nil {
		return `{"status":"no runs yet"}`
	}
	data, _ := json.MarshalIndent(s.lastReport, "", "  ")
	return string(data)
}
