package web

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/osintlab/socialscope/internal/imagematch"
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

// stubSearcher returns canned matches for any query image.
type stubSearcher struct {
	matches    []imagematch.Match
	candidates []imagematch.Candidate
}

func (s *stubSearcher) Search(ctx context.Context, query image.Image, candidates []imagematch.Candidate) ([]imagematch.Match, error) {
	s.candidates = candidates
	return s.matches, nil
}

// stubPipeline records trigger calls.
type stubPipeline struct {
	mu   sync.Mutex
	runs int
}

func (p *stubPipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	return nil
}

func (p *stubPipeline) Metrics() string {
	return `{"status":"no runs yet"}`
}

func (p *stubPipeline) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func newTestServer(t *testing.T, store storage.Store, searcher ImageSearcher, pipeline PipelineRunner) *Server {
	t.Helper()
	server, err := NewServer(store, searcher, pipeline)
	require.NoError(t, err)
	return server
}

func pngUploadRequest(t *testing.T, field string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "query.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/search-by-image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHandleHome(t *testing.T) {
	store := &MockStore{}
	store.On("ListPosts", mock.Anything).Return([]models.Post{
		{Platform: "twitter", Username: "alice", Text: "hello world", Sentiment: models.SentimentPositive},
	}, nil)
	store.On("Stats", mock.Anything).Return(storage.Stats{
		Platforms:   []string{"twitter"},
		UniqueUsers: 1,
		TotalPosts:  1,
	}, nil)

	server := newTestServer(t, store, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello world")
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestHandleSearch(t *testing.T) {
	store := &MockStore{}
	store.On("SearchPosts", mock.Anything, "alice").Return([]models.Post{
		{Platform: "twitter", Username: "alice", Text: "found me"},
	}, nil)

	server := newTestServer(t, store, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=alice", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "found me")
	store.AssertExpectations(t)
}

func TestHandleSearch_EmptyQuerySkipsStore(t *testing.T) {
	store := &MockStore{}
	server := newTestServer(t, store, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertNotCalled(t, "SearchPosts", mock.Anything, mock.Anything)
}

func TestHandleSearchByImage_NoFile(t *testing.T) {
	server := newTestServer(t, &MockStore{}, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search-by-image", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload an image to search.")
}

func TestHandleSearchByImage_InvalidImage(t *testing.T) {
	server := newTestServer(t, &MockStore{}, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	req := pngUploadRequest(t, "image", []byte("just some text pretending to be a picture"))
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a valid image")
}

func TestHandleSearchByImage_Matches(t *testing.T) {
	store := &MockStore{}
	store.On("ListProfileImages", mock.Anything).Return([]storage.ProfileImage{
		{Platform: "github", Username: "alice", Name: "Alice", URL: "https://img.example/alice.png"},
		{Platform: "reddit", Username: "bob", Name: "Bob", URL: "https://img.example/bob.png"},
	}, nil)
	store.On("PostsByUser", mock.Anything, "github", "alice", 20).Return([]models.Post{
		{Platform: "github", Username: "alice", Text: "a matched post"},
	}, nil)

	searcher := &stubSearcher{matches: []imagematch.Match{
		{
			Candidate: imagematch.Candidate{Platform: "github", Username: "alice", Name: "Alice"},
			Distance:  3,
		},
	}}

	server := newTestServer(t, store, searcher, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, pngUploadRequest(t, "image", smallPNG(t)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
	assert.Contains(t, rec.Body.String(), "a matched post")

	// Every stored profile image becomes a candidate.
	require.Len(t, searcher.candidates, 2)
	assert.Equal(t, "https://img.example/alice.png", searcher.candidates[0].ImageURL)
	store.AssertExpectations(t)
}

func TestHandleSearchByImage_NoMatches(t *testing.T) {
	store := &MockStore{}
	store.On("ListProfileImages", mock.Anything).Return([]storage.ProfileImage{}, nil)

	server := newTestServer(t, store, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, pngUploadRequest(t, "image", smallPNG(t)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No matches found.")
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, &MockStore{}, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleMetrics(t *testing.T) {
	server := newTestServer(t, &MockStore{}, &stubSearcher{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"no runs yet"}`, rec.Body.String())
}

func TestHandleTrigger(t *testing.T) {
	pipeline := &stubPipeline{}
	server := newTestServer(t, &MockStore{}, &stubSearcher{}, pipeline)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "triggered")

	assert.Eventually(t, func() bool {
		return pipeline.runCount() == 1
	}, time.Second, 10*time.Millisecond)
}
