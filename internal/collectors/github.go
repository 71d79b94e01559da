package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintlab/socialscope/internal/models"
)

// GitHubCollector searches GitHub repositories and emits each hit as a
// post-shaped record: the repository description serves as the text body.
type GitHubCollector struct {
	token   string
	client  *resty.Client
	baseURL string
}

type githubSearchResponse struct {
	Items []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		HTMLURL     string `json:"html_url"`
		CreatedAt   string `json:"created_at"`
		UpdatedAt   string `json:"updated_at"`
		Owner       struct {
			Login     string `json:"login"`
			AvatarURL string `json:"avatar_url"`
		} `json:"owner"`
	} `json:"items"`
}

// NewGitHubCollector creates a new GitHub collector. The token is optional
// but raises the unauthenticated rate limit considerably.
func NewGitHubCollector(token string) *GitHubCollector {
	return &GitHubCollector{
		token:   token,
		baseURL: "https://api.github.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (g *GitHubCollector) Name() string {
	return "github"
}

func (g *GitHubCollector) Enabled() bool {
	return true // GitHub search works without authentication
}

func (g *GitHubCollector) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	req := g.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetQueryParam("q", query).
		SetQueryParam("per_page", strconv.Itoa(limit))
	if g.token != "" {
		req.SetHeader("Authorization", "token "+g.token)
	}

	resp, err := req.Get(g.baseURL + "/search/repositories")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("github API returned status %d", resp.StatusCode())
	}

	var body githubSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, repo := range body.Items {
		if len(records) >= limit {
			break
		}
		timestamp := repo.CreatedAt
		if timestamp == "" {
			timestamp = repo.UpdatedAt
		}
		records = append(records, models.RawRecord{
			"user":        repo.Owner.Login,
			"username":    repo.Owner.Login,
			"name":        repo.Name,
			"email":       "",
			"profile_pic": repo.Owner.AvatarURL,
			"timestamp":   timestamp,
			"text":        repo.Description,
			"url":         repo.HTMLURL,
		})
	}
	return records, nil
}
