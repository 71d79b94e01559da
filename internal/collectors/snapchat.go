package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintlab/socialscope/internal/models"
)

// SnapchatCollector scrapes one public profile through the RapidAPI
// gateway. The query parameter is interpreted as a username; Snapchat has
// no post search, so the profile bio becomes the single record's text.
type SnapchatCollector struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type snapchatProfileResponse struct {
	Name              string `json:"name"`
	SnapcodeURL       string `json:"snapcodeURL"`
	PublicAccountData struct {
		Bio string `json:"bio"`
	} `json:"publicAccountData"`
}

// NewSnapchatCollector creates a new Snapchat collector
func NewSnapchatCollector(apiKey string) *SnapchatCollector {
	return &SnapchatCollector{
		apiKey:  apiKey,
		baseURL: "https://snapchat-profile-scraper-api.p.rapidapi.com",
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (s *SnapchatCollector) Name() string {
	return "snapchat"
}

func (s *SnapchatCollector) Enabled() bool {
	return s.apiKey != ""
}

func (s *SnapchatCollector) Fetch(ctx context.Context, username string, limit int) ([]models.RawRecord, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", s.apiKey).
		SetHeader("X-RapidAPI-Host", "snapchat-profile-scraper-api.p.rapidapi.com").
		SetQueryParam("username", username).
		Get(s.baseURL + "/profile")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("snapchat API returned status %d", resp.StatusCode())
	}

	var profile snapchatProfileResponse
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return nil, err
	}

	name := profile.Name
	if name == "" {
		name = username
	}

	return []models.RawRecord{{
		"name":        name,
		"username":    username,
		"email":       "",
		"profile_pic": profile.SnapcodeURL,
		"timestamp":   "",
		"text":        profile.PublicAccountData.Bio,
		"url":         "https://www.snapchat.com/add/" + username,
	}}, nil
}
