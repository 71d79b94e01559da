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

// RedditCollector reads hot posts from a subreddit. The query parameter is
// interpreted as the subreddit name.
type RedditCollector struct {
	clientID     string
	clientSecret string
	client       *resty.Client
	authURL      string
	baseURL      string
	accessToken  string
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Author     string  `json:"author"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditCollector creates a new Reddit collector
func NewRedditCollector(clientID, clientSecret string) *RedditCollector {
	return &RedditCollector{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      "https://www.reddit.com",
		baseURL:      "https://oauth.reddit.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (r *RedditCollector) Name() string {
	return "reddit"
}

func (r *RedditCollector) Enabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditCollector) Fetch(ctx context.Context, subreddit string, limit int) ([]models.RawRecord, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(fmt.Sprintf("%s/r/%s/hot.json", r.baseURL, subreddit))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, child := range listing.Data.Children {
		if len(records) >= limit {
			break
		}
		post := child.Data
		records = append(records, models.RawRecord{
			"name":        post.Author,
			"username":    post.Author,
			"email":       "",
			"profile_pic": "",
			"timestamp":   strconv.FormatFloat(post.CreatedUTC, 'f', -1, 64),
			"text":        post.Title,
			"url":         "https://reddit.com" + post.Permalink,
		})
	}
	return records, nil
}

func (r *RedditCollector) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(r.authURL + "/api/v1/access_token")
	if err != nil {
		return err
	}

	var auth redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return err
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("no access token in response")
	}

	r.accessToken = auth.AccessToken
	return nil
}
