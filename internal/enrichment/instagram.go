package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
)

type instagramResponse struct {
	User struct {
		Username        string `json:"username"`
		FullName        string `json:"full_name"`
		ProfilePicURLHD string `json:"profile_pic_url_hd"`
		Biography       string `json:"biography"`
		FollowerCount   int    `json:"follower_count"`
		FollowingCount  int    `json:"following_count"`
	} `json:"user"`
}

func (r *Resolver) fetchInstagram(ctx context.Context, username string) (models.UserProfile, Outcome) {
	if r.cfg.RapidAPIKey == "" {
		return models.UserProfile{}, OutcomePermanent
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", r.cfg.RapidAPIKey).
		SetHeader("X-RapidAPI-Host", "instagram-scraper-2022.p.rapidapi.com").
		SetQueryParam("user", username).
		Get(r.api.instagram + "/ig/info_username")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var body instagramResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	return models.UserProfile{
		Username:   body.User.Username,
		Name:       body.User.FullName,
		ProfilePic: body.User.ProfilePicURLHD,
		Bio:        body.User.Biography,
		Followers:  body.User.FollowerCount,
		Following:  body.User.FollowingCount,
	}, OutcomeSuccess
}
