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

// MastodonCollector reads the public hashtag timeline of one Mastodon
// instance. The query parameter is interpreted as a hashtag.
type MastodonCollector struct {
	accessToken string
	client      *resty.Client
	baseURL     string
}

type mastodonStatus struct {
	CreatedAt string `json:"created_at"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Account   struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
	} `json:"account"`
}

// NewMastodonCollector creates a collector for the given instance base URL.
func NewMastodonCollector(baseURL, accessToken string) *MastodonCollector {
	return &MastodonCollector{
		accessToken: accessToken,
		baseURL:     baseURL,
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (m *MastodonCollector) Name() string {
	return "mastodon"
}

func (m *MastodonCollector) Enabled() bool {
	return m.baseURL != ""
}

func (m *MastodonCollector) Fetch(ctx context.Context, hashtag string, limit int) ([]models.RawRecord, error) {
	req := m.client.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit))
	if m.accessToken != "" {
		req.SetHeader("Authorization", "Bearer "+m.accessToken)
	}

	resp, err := req.Get(m.baseURL + "/api/v1/timelines/tag/" + hashtag)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("mastodon API returned status %d", resp.StatusCode())
	}

	var statuses []mastodonStatus
	if err := json.Unmarshal(resp.Body(), &statuses); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, status := range statuses {
		if len(records) >= limit {
			break
		}
		records = append(records, models.RawRecord{
			"name":        status.Account.DisplayName,
			"username":    status.Account.Username,
			"email":       "",
			"profile_pic": status.Account.Avatar,
			"timestamp":   status.CreatedAt,
			"text":        status.Content,
			"url":         status.URL,
		})
	}
	return records, nil
}
