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

// FacebookCollector searches public pages and places through the RapidAPI
// gateway.
type FacebookCollector struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type facebookSearchResponse struct {
	Results []struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Type     string `json:"type"`
		URL      string `json:"url"`
		Image    struct {
			URI string `json:"uri"`
		} `json:"image"`
	} `json:"results"`
}

// NewFacebookCollector creates a new Facebook collector
func NewFacebookCollector(apiKey string) *FacebookCollector {
	return &FacebookCollector{
		apiKey:  apiKey,
		baseURL: "https://facebook-profile-data.p.rapidapi.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (f *FacebookCollector) Name() string {
	return "facebook"
}

func (f *FacebookCollector) Enabled() bool {
	return f.apiKey != ""
}

func (f *FacebookCollector) Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", f.apiKey).
		SetHeader("X-RapidAPI-Host", "facebook-profile-data.p.rapidapi.com").
		SetQueryParam("query", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(f.baseURL + "/search/places")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("facebook API returned status %d", resp.StatusCode())
	}

	var body facebookSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, result := range body.Results {
		if len(records) >= limit {
			break
		}
		records = append(records, models.RawRecord{
			"name":        result.Name,
			"username":    result.Username,
			"email":       result.Email,
			"profile_pic": result.Image.URI,
			"timestamp":   "",
			"text":        result.Type,
			"url":         result.URL,
		})
	}
	return records, nil
}
