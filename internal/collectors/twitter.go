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

// TwitterCollector searches recent tweets. With a RapidAPI key it goes
// through the RapidAPI gateway; with only a bearer token it falls back to
// the official v2 recent-search endpoint.
type TwitterCollector struct {
	apiKey      string
	bearerToken string
	client      *resty.Client
	baseURL     string
	apiBaseURL  string
}

type twitterSearchResponse struct {
	Results []struct {
		TweetID      string `json:"tweet_id"`
		Text         string `json:"text"`
		CreationDate string `json:"creation_date"`
		User         struct {
			Username      string `json:"username"`
			Name          string `json:"name"`
			ProfilePicURL string `json:"profile_pic_url"`
		} `json:"user"`
	} `json:"results"`
}

type twitterV2SearchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
		AuthorID  string `json:"author_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"users"`
	} `json:"includes"`
}

// NewTwitterCollector creates a new Twitter collector
func NewTwitterCollector(apiKey, bearerToken string) *TwitterCollector {
	return &TwitterCollector{
		apiKey:      apiKey,
		bearerToken: bearerToken,
		baseURL:     "https://twitter154.p.rapidapi.com",
		apiBaseURL:  "https://api.twitter.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (t *TwitterCollector) Name() string {
	return "twitter"
}

func (t *TwitterCollector) Enabled() bool {
	return t.apiKey != "" || t.bearerToken != ""
}

func (t *TwitterCollector) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	if t.apiKey != "" {
		return t.fetchRapidAPI(ctx, query, limit)
	}
	return t.fetchOfficial(ctx, query, limit)
}

func (t *TwitterCollector) fetchRapidAPI(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", t.apiKey).
		SetHeader("X-RapidAPI-Host", "twitter154.p.rapidapi.com").
		SetQueryParam("query", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(t.baseURL + "/search/search")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d", resp.StatusCode())
	}

	var body twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, tweet := range body.Results {
		if len(records) >= limit {
			break
		}
		records = append(records, models.RawRecord{
			"username":    tweet.User.Username,
			"name":        tweet.User.Name,
			"profile_pic": tweet.User.ProfilePicURL,
			"timestamp":   tweet.CreationDate,
			"text":        tweet.Text,
			"url":         fmt.Sprintf("https://twitter.com/%s/status/%s", tweet.User.Username, tweet.TweetID),
		})
	}
	return records, nil
}

func (t *TwitterCollector) fetchOfficial(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	// The v2 endpoint only accepts max_results between 10 and 100.
	maxResults := limit
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetQueryParam("query", query).
		SetQueryParam("max_results", strconv.Itoa(maxResults)).
		SetQueryParam("tweet.fields", "created_at").
		SetQueryParam("expansions", "author_id").
		SetQueryParam("user.fields", "name,username,profile_image_url").
		Get(t.apiBaseURL + "/2/tweets/search/recent")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d", resp.StatusCode())
	}

	var body twitterV2SearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	users := make(map[string]struct{ name, username, pic string }, len(body.Includes.Users))
	for _, u := range body.Includes.Users {
		users[u.ID] = struct{ name, username, pic string }{u.Name, u.Username, u.ProfileImageURL}
	}

	var records []models.RawRecord
	for _, tweet := range body.Data {
		if len(records) >= limit {
			break
		}
		author := users[tweet.AuthorID]
		records = append(records, models.RawRecord{
			"username":    author.username,
			"name":        author.name,
			"profile_pic": author.pic,
			"timestamp":   tweet.CreatedAt,
			"text":        tweet.Text,
			"url":         fmt.Sprintf("https://twitter.com/%s/status/%s", author.username, tweet.ID),
		})
	}
	return records, nil
}
