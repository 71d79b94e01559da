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

// InstagramCollector searches hashtag posts through the RapidAPI gateway.
// The query parameter is interpreted as a hashtag.
type InstagramCollector struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type instagramHashtagResponse struct {
	Posts struct {
		Edges []struct {
			Node struct {
				Shortcode        string `json:"shortcode"`
				DisplayURL       string `json:"display_url"`
				TakenAtTimestamp int64  `json:"taken_at_timestamp"`
				Owner            struct {
					Username string `json:"username"`
					FullName string `json:"full_name"`
				} `json:"owner"`
				EdgeMediaToCaption struct {
					Edges []struct {
						Node struct {
							Text string `json:"text"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"edge_media_to_caption"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"posts"`
}

// NewInstagramCollector creates a new Instagram collector
func NewInstagramCollector(apiKey string) *InstagramCollector {
	return &InstagramCollector{
		apiKey:  apiKey,
		baseURL: "https://instagram-scraper-stable-api.p.rapidapi.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (i *InstagramCollector) Name() string {
	return "instagram"
}

func (i *InstagramCollector) Enabled() bool {
	return i.apiKey != ""
}

func (i *InstagramCollector) Fetch(ctx context.Context, hashtag string, limit int) ([]models.RawRecord, error) {
	resp, err := i.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", i.apiKey).
		SetHeader("X-RapidAPI-Host", "instagram-scraper-stable-api.p.rapidapi.com").
		SetQueryParam("hashtag", hashtag).
		Get(i.baseURL + "/search_hashtag.php")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("instagram API returned status %d", resp.StatusCode())
	}

	var body instagramHashtagResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, edge := range body.Posts.Edges {
		if len(records) >= limit {
			break
		}
		node := edge.Node

		caption := ""
		if captions := node.EdgeMediaToCaption.Edges; len(captions) > 0 {
			caption = captions[0].Node.Text
		}

		records = append(records, models.RawRecord{
			"name":        node.Owner.FullName,
			"username":    node.Owner.Username,
			"email":       "",
			"profile_pic": node.DisplayURL,
			"timestamp":   strconv.FormatInt(node.TakenAtTimestamp, 10),
			"caption":     caption,
			"url":         "https://www.instagram.com/p/" + node.Shortcode,
		})
	}
	return records, nil
}
