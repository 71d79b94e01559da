package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
)

type facebookProfile struct {
	Name           string `json:"name"`
	ProfilePic     string `json:"profile_pic"`
	About          string `json:"about"`
	Location       string `json:"location"`
	FollowersCount int    `json:"followers_count"`
}

func (r *Resolver) fetchFacebook(ctx context.Context, username string) (models.UserProfile, Outcome) {
	if r.cfg.RapidAPIKey == "" {
		return models.UserProfile{}, OutcomePermanent
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", r.cfg.RapidAPIKey).
		SetHeader("X-RapidAPI-Host", "facebook-profile-data.p.rapidapi.com").
		SetQueryParam("username", username).
		Get(r.api.facebook + "/profile")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var profile facebookProfile
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	// Facebook exposes no following count.
	return models.UserProfile{
		Username:   username,
		Name:       profile.Name,
		ProfilePic: profile.ProfilePic,
		Bio:        profile.About,
		Location:   profile.Location,
		Followers:  profile.FollowersCount,
	}, OutcomeSuccess
}
