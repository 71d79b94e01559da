package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
)

type twitterUser struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicURL  string `json:"profile_pic_url"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
}

func (r *Resolver) fetchTwitter(ctx context.Context, username string) (models.UserProfile, Outcome) {
	if r.cfg.RapidAPIKey == "" {
		return models.UserProfile{}, OutcomePermanent
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", r.cfg.RapidAPIKey).
		SetHeader("X-RapidAPI-Host", "twitter154.p.rapidapi.com").
		SetQueryParam("username", username).
		Get(r.api.twitter + "/user/details")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var user twitterUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	// Twitter never exposes email addresses.
	return models.UserProfile{
		Username:   user.Username,
		Name:       user.Name,
		ProfilePic: user.ProfilePicURL,
		Bio:        user.Description,
		Location:   user.Location,
		Followers:  user.FollowersCount,
		Following:  user.FollowingCount,
	}, OutcomeSuccess
}
