package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/osintlab/socialscope/internal/imagematch"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/osintlab/socialscope/internal/storage"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadBytes caps the reverse-search upload size.
const maxUploadBytes = 10 << 20

// ImageSearcher is the matcher contract the UI depends on.
type ImageSearcher interface {
	Search(ctx context.Context, query image.Image, candidates []imagematch.Candidate) ([]imagematch.Match, error)
}

// PipelineRunner triggers runs and reports metrics.
type PipelineRunner interface {
	Run(ctx context.Context) error
	Metrics() string
}

// Server exposes the browsing, text search and reverse image search UI.
type Server struct {
	store     storage.Store
	matcher   ImageSearcher
	pipeline  PipelineRunner
	templates *template.Template
}

// matchView pairs one accepted match with the user's recent posts.
type matchView struct {
	Match imagematch.Match
	Posts []models.Post
}

// NewServer creates the web server over the given collaborators.
func NewServer(store storage.Store, matcher ImageSearcher, pipeline PipelineRunner) (*Server, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		store:     store,
		matcher:   matcher,
		pipeline:  pipeline,
		templates: templates,
	}, nil
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleHome).Methods("GET")
	router.HandleFunc("/search", s.handleSearch).Methods("GET")
	router.HandleFunc("/search-by-image", s.handleSearchByImageForm).Methods("GET")
	router.HandleFunc("/search-by-image", s.handleSearchByImage).Methods("POST")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	router.HandleFunc("/trigger", s.handleTrigger).Methods("POST")
	return router
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list posts: %v", err)
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logrus.Errorf("Failed to load stats: %v", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Posts": posts,
		"Stats": stats,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var posts []models.Post
	if query != "" {
		var err error
		posts, err = s.store.SearchPosts(r.Context(), query)
		if err != nil {
			logrus.Errorf("Search failed for %q: %v", query, err)
			http.Error(w, "search failed", http.StatusInternalServerError)
			return
		}
	}

	s.render(w, "search.html", map[string]any{
		"Query": query,
		"Posts": posts,
	})
}

func (s *Server) handleSearchByImageForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "search_by_image.html", map[string]any{})
}

// handleSearchByImage validates the upload at the boundary, then runs the
// perceptual hash search over all stored profile pictures. The only
// user-visible failures are "no valid image supplied" and an empty result.
func (s *Server) handleSearchByImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		s.renderImageError(w, "Please upload an image to search.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.renderImageError(w, "Please upload an image to search.")
		return
	}

	img, err := imagematch.DecodeImage(data)
	if err != nil {
		s.renderImageError(w, "Uploaded file is not a valid image.")
		return
	}

	images, err := s.store.ListProfileImages(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list profile images: %v", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	candidates := make([]imagematch.Candidate, 0, len(images))
	for _, pi := range images {
		candidates = append(candidates, imagematch.Candidate{
			Platform: pi.Platform,
			Username: pi.Username,
			Name:     pi.Name,
			ImageURL: pi.URL,
		})
	}

	matches, err := s.matcher.Search(r.Context(), img, candidates)
	if err != nil {
		logrus.Errorf("Image search failed: %v", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		posts, err := s.store.PostsByUser(r.Context(), m.Platform, m.Username, 20)
		if err != nil {
			logrus.Errorf("Failed to load posts for %s/%s: %v", m.Platform, m.Username, err)
		}
		views = append(views, matchView{Match: m, Posts: posts})
	}

	s.render(w, "search_by_image.html", map[string]any{
		"Searched": true,
		"Matches":  views,
	})
}

func (s *Server) renderImageError(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusBadRequest)
	s.render(w, "search_by_image.html", map[string]any{
		"Error": message,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.pipeline.Metrics()))
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.pipeline.Run(context.Background()); err != nil {
			logrus.Errorf("Manual pipeline trigger failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"Aggregation run triggered"}`))
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logrus.Errorf("Failed to render %s: %v", name, err)
	}
}
