package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
)

type tiktokResponse struct {
	User struct {
		Nickname       string `json:"nickname"`
		AvatarLarger   string `json:"avatarLarger"`
		Signature      string `json:"signature"`
		FollowerCount  int    `json:"followerCount"`
		FollowingCount int    `json:"followingCount"`
	} `json:"user"`
}

func (r *Resolver) fetchTikTok(ctx context.Context, username string) (models.UserProfile, Outcome) {
	if r.cfg.RapidAPIKey == "" {
		return models.UserProfile{}, OutcomePermanent
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", r.cfg.RapidAPIKey).
		SetHeader("X-RapidAPI-Host", "tiktok-api6.p.rapidapi.com").
		SetQueryParam("unique_id", username).
		Get(r.api.tiktok + "/user/info")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var body tiktokResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	return models.UserProfile{
		Username:   username,
		Name:       body.User.Nickname,
		ProfilePic: body.User.AvatarLarger,
		Bio:        body.User.Signature,
		Followers:  body.User.FollowerCount,
		Following:  body.User.FollowingCount,
	}, OutcomeSuccess
}
