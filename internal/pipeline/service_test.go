package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/osintlab/socialscope/internal/collectors"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/osintlab/socialscope/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of the storage interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) SavePosts(ctx context.Context, posts []models.Post) (int, error) {
	args := m.Called(ctx, posts)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) UpsertProfile(ctx context.Context, profile models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockStore) GetProfile(ctx context.Context, platform, username string) (*models.UserProfile, error) {
	args := m.Called(ctx, platform, username)
	if p := args.Get(0); p != nil {
		return p.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ProfileHistoryCount(ctx context.Context, platform, username string) (int, error) {
	args := m.Called(ctx, platform, username)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockStore) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockStore) PostsByUser(ctx context.Context, platform, username string, limit int) ([]models.Post, error) {
	args := m.Called(ctx, platform, username, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockStore) ListProfileImages(ctx context.Context) ([]storage.ProfileImage, error) {
	args := m.Called(ctx)
	return args.Get(0).([]storage.ProfileImage), args.Error(1)
}

func (m *MockStore) Stats(ctx context.Context) (storage.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.Stats), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// stubSource is a canned platform collector.
type stubSource struct {
	name     string
	enabled  bool
	records  []models.RawRecord
	err      error
	gotLimit int
	gotQuery string
	fetchCnt int
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) Enabled() bool { return s.enabled }
func (s *stubSource) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	s.fetchCnt++
	s.gotQuery = query
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

// stubResolver returns canned profiles, degrading to the sentinel.
type stubResolver struct {
	profiles map[string]models.UserProfile // "platform/username" -> profile
}

func (r *stubResolver) Resolve(ctx context.Context, platform, username string) models.UserProfile {
	if p, ok := r.profiles[platform+"/"+username]; ok {
		p.Platform = platform
		return p
	}
	return models.EmptyProfile(platform, username)
}

type stubArchiver struct {
	batches [][]models.Post
	err     error
}

func (a *stubArchiver) ArchiveBatch(ctx context.Context, posts []models.Post) error {
	a.batches = append(a.batches, posts)
	return a.err
}

type stubNotifier struct {
	reports []*models.RunReport
}

func (n *stubNotifier) SendRunReport(report *models.RunReport) error {
	n.reports = append(n.reports, report)
	return nil
}

func testPipelineConfig() *config.Config {
	return &config.Config{
		TargetLanguage: "en",
		RecordBudget:   100,
		Queries: map[string]string{
			"twitter": "AI", "reddit": "technology", "github": "leak",
			"facebook": "cnn", "instagram": "gaming", "tiktok": "cybersecurity",
			"mastodon": "ai", "snapchat": "mrbeast",
		},
	}
}

// newTestService wires a service around stubs with every text detected as
// English and scored neutral unless overridden.
func newTestService(cfg *config.Config, store storage.Store, resolver ProfileResolver,
	detector LanguageDetector, scorer PolarityScorer, sources ...collectors.Source) *Service {
	svc := NewService(cfg, store, resolver, nil, nil, detector, scorer)
	svc.SetSources(sources)
	return svc
}

type allEnglish struct{}

func (allEnglish) Detect(text string) (string, bool) { return "en", true }

type allNeutral struct{}

func (allNeutral) Score(text string) float64 { return 0 }

func TestRun_FullPass(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "I love this!!! http://spam.example", "timestamp": "111"},
		{"username": "bob", "text": "This is awful", "timestamp": "222"},
	}}
	github := &stubSource{name: "github", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "neutral readme", "timestamp": "333"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	var saved []models.Post
	store.On("SavePosts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]models.Post)
	}).Return(3, nil)

	scorer := &fakeScorer{polarity: map[string]float64{
		"I love this":    0.8,
		"This is awful":  -0.7,
		"neutral readme": 0.0,
	}}

	archiver := &stubArchiver{}
	notifier := &stubNotifier{}
	svc := NewService(cfg, store, &stubResolver{}, archiver, notifier, allEnglish{}, scorer)
	svc.SetSources([]collectors.Source{twitter, github})

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, saved, 3)
	assert.Equal(t, "I love this", saved[0].Text) // URL and punctuation stripped
	assert.Equal(t, models.SentimentPositive, saved[0].Sentiment)
	assert.Equal(t, models.SentimentNegative, saved[1].Sentiment)
	assert.Equal(t, models.SentimentNeutral, saved[2].Sentiment)

	assert.Equal(t, "AI", twitter.gotQuery)
	assert.Equal(t, "leak", github.gotQuery)

	// Twitter runs before github in the fixed platform order.
	assert.Equal(t, "twitter", saved[0].Platform)
	assert.Equal(t, "github", saved[2].Platform)

	require.Len(t, archiver.batches, 1)
	assert.Len(t, archiver.batches[0], 3)

	require.Len(t, notifier.reports, 1)
	report := notifier.reports[0]
	assert.Equal(t, 3, report.Collected)
	assert.Equal(t, 3, report.Stored)
	assert.Equal(t, 3, report.ProfilesEnriched)
	assert.Zero(t, report.ErrorCount)

	store.AssertExpectations(t)
}

func TestRun_EnrichmentDedupesPerIdentity(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "first"},
		{"username": "alice", "text": "second"},
		{"username": "alice", "text": "third"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, "twitter", "alice").Return(nil, nil).Once()
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SavePosts", mock.Anything, mock.Anything).Return(3, nil)

	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{}, twitter)
	require.NoError(t, svc.Run(context.Background()))

	store.AssertExpectations(t)
}

func TestRun_EnrichmentMergesStoredProfile(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "hello"},
	}}

	existing := &models.UserProfile{
		Platform: "twitter", Username: "alice",
		Name: "Known Alice", Followers: 500,
	}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, "twitter", "alice").Return(existing, nil)
	var upserted models.UserProfile
	store.On("UpsertProfile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		upserted = args.Get(1).(models.UserProfile)
	}).Return(nil)
	store.On("SavePosts", mock.Anything, mock.Anything).Return(1, nil)

	// The resolver degrades to the sentinel; the stored fields must survive.
	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{}, twitter)
	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, "Known Alice", upserted.Name)
	assert.Equal(t, 500, upserted.Followers)
	assert.Equal(t, "twitter", upserted.Platform)
}

func TestRun_BudgetLimitsCollection(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.RecordBudget = 3

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "a", "text": "one"},
		{"username": "b", "text": "two"},
		{"username": "c", "text": "three"},
		{"username": "d", "text": "four"},
	}}
	reddit := &stubSource{name: "reddit", enabled: true, records: []models.RawRecord{
		{"username": "e", "text": "five"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	var saved []models.Post
	store.On("SavePosts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]models.Post)
	}).Return(3, nil)

	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{}, twitter, reddit)
	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, 3, twitter.gotLimit)
	assert.Zero(t, reddit.fetchCnt) // budget exhausted before reddit's turn
	assert.Len(t, saved, 3)
}

// overSource ignores the limit it is handed and returns everything.
type overSource struct {
	name    string
	records []models.RawRecord
}

func (s *overSource) Name() string  { return s.name }
func (s *overSource) Enabled() bool { return true }
func (s *overSource) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	return s.records, nil
}

func TestRun_BudgetHoldsWhenSourceIgnoresLimit(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.RecordBudget = 2

	greedy := &overSource{name: "twitter", records: []models.RawRecord{
		{"username": "a", "text": "one"},
		{"username": "b", "text": "two"},
		{"username": "c", "text": "three"},
		{"username": "d", "text": "four"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	var saved []models.Post
	store.On("SavePosts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]models.Post)
	}).Return(2, nil)

	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{}, greedy)
	require.NoError(t, svc.Run(context.Background()))

	assert.Len(t, saved, 2)
}

func TestRun_FailingSourceIsSkipped(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, err: errors.New("boom")}
	github := &stubSource{name: "github", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "still here"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	var saved []models.Post
	store.On("SavePosts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]models.Post)
	}).Return(1, nil)

	notifier := &stubNotifier{}
	svc := NewService(cfg, store, &stubResolver{}, nil, notifier, allEnglish{}, allNeutral{})
	svc.SetSources([]collectors.Source{twitter, github})

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, saved, 1)
	assert.Equal(t, "still here", saved[0].Text)
	require.Len(t, notifier.reports, 1)
	assert.Equal(t, 1, notifier.reports[0].ErrorCount)
}

func TestRun_DisabledSourceIsNeverFetched(t *testing.T) {
	cfg := testPipelineConfig()

	disabled := &stubSource{name: "twitter", enabled: false, records: []models.RawRecord{
		{"username": "x", "text": "hidden"},
	}}

	store := &MockStore{}
	store.On("SavePosts", mock.Anything, mock.Anything).Return(0, nil)

	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{}, disabled)
	require.NoError(t, svc.Run(context.Background()))

	assert.Zero(t, disabled.fetchCnt)
}

func TestRun_FiltersNonTargetLanguage(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "hello there friend"},
		{"username": "pedro", "text": "hola buenos dias amigo"},
	}}

	detector := &fakeDetector{languages: map[string]string{
		"hello there friend":     "en",
		"hola buenos dias amigo": "es",
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	var saved []models.Post
	store.On("SavePosts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).([]models.Post)
	}).Return(1, nil)

	svc := newTestService(cfg, store, &stubResolver{}, detector, allNeutral{}, twitter)
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, saved, 1)
	assert.Equal(t, "alice", saved[0].Username)
}

func TestRun_PartialStoreFailureDoesNotAbort(t *testing.T) {
	cfg := testPipelineConfig()

	twitter := &stubSource{name: "twitter", enabled: true, records: []models.RawRecord{
		{"username": "alice", "text": "one"},
		{"username": "bob", "text": "two"},
	}}

	store := &MockStore{}
	store.On("GetProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil)
	store.On("SavePosts", mock.Anything, mock.Anything).Return(1, errors.New("stored 1 of 2 posts"))

	notifier := &stubNotifier{}
	svc := NewService(cfg, store, &stubResolver{}, nil, notifier, allEnglish{}, allNeutral{})
	svc.SetSources([]collectors.Source{twitter})

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, notifier.reports, 1)
	assert.Equal(t, 1, notifier.reports[0].Stored)
	assert.Equal(t, 1, notifier.reports[0].ErrorCount)
}

func TestMetrics(t *testing.T) {
	cfg := testPipelineConfig()

	store := &MockStore{}
	store.On("SavePosts", mock.Anything, mock.Anything).Return(0, nil)

	svc := newTestService(cfg, store, &stubResolver{}, allEnglish{}, allNeutral{})

	assert.JSONEq(t, `{"status":"no runs yet"}`, svc.Metrics())

	require.NoError(t, svc.Run(context.Background()))

	var report models.RunReport
	require.NoError(t, json.Unmarshal([]byte(svc.Metrics()), &report))
	assert.Zero(t, report.Collected)
	assert.False(t, report.StartedAt.IsZero())
}
