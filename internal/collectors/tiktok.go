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

// TikTokCollector searches videos by keyword through the RapidAPI gateway.
type TikTokCollector struct {
	apiKey  string
	client  *resty.Client
	baseURL string
}

type tiktokSearchResponse struct {
	ItemList []struct {
		ID         string `json:"id"`
		Desc       string `json:"desc"`
		CreateTime int64  `json:"createTime"`
		Author     struct {
			UniqueID     string `json:"uniqueId"`
			Nickname     string `json:"nickname"`
			AvatarLarger string `json:"avatarLarger"`
			AvatarMedium string `json:"avatarMedium"`
			AvatarThumb  string `json:"avatarThumb"`
		} `json:"author"`
	} `json:"item_list"`
}

// NewTikTokCollector creates a new TikTok collector
func NewTikTokCollector(apiKey string) *TikTokCollector {
	return &TikTokCollector{
		apiKey:  apiKey,
		baseURL: "https://tiktok-api23.p.rapidapi.com",
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "socialscope/1.0"),
	}
}

func (t *TikTokCollector) Name() string {
	return "tiktok"
}

func (t *TikTokCollector) Enabled() bool {
	return t.apiKey != ""
}

func (t *TikTokCollector) Fetch(ctx context.Context, keyword string, limit int) ([]models.RawRecord, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", t.apiKey).
		SetHeader("X-RapidAPI-Host", "tiktok-api23.p.rapidapi.com").
		SetQueryParams(map[string]string{
			"keyword":   keyword,
			"cursor":    "0",
			"search_id": "0",
		}).
		Get(t.baseURL + "/api/search/video")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("tiktok API returned status %d", resp.StatusCode())
	}

	var body tiktokSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	var records []models.RawRecord
	for _, item := range body.ItemList {
		if len(records) >= limit {
			break
		}

		avatar := item.Author.AvatarLarger
		if avatar == "" {
			avatar = item.Author.AvatarMedium
		}
		if avatar == "" {
			avatar = item.Author.AvatarThumb
		}

		records = append(records, models.RawRecord{
			"user":        item.Author.UniqueID,
			"username":    item.Author.UniqueID,
			"name":        item.Author.Nickname,
			"email":       "",
			"profile_pic": avatar,
			"timestamp":   strconv.FormatInt(item.CreateTime, 10),
			"text":        item.Desc,
			"url":         fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", item.Author.UniqueID, item.ID),
		})
	}
	return records, nil
}
