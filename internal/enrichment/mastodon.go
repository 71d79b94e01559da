package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
)

type mastodonAccount struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Avatar         string `json:"avatar"`
	Note           string `json:"note"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
}

func (r *Resolver) fetchMastodon(ctx context.Context, username string) (models.UserProfile, Outcome) {
	req := r.client.R().
		SetContext(ctx).
		SetQueryParam("acct", username)
	if r.cfg.MastodonAccessToken != "" {
		req.SetHeader("Authorization", "Bearer "+r.cfg.MastodonAccessToken)
	}

	resp, err := req.Get(r.api.mastodon + "/api/v1/accounts/lookup")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var account mastodonAccount
	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	return models.UserProfile{
		Username:   account.Username,
		Name:       account.DisplayName,
		ProfilePic: account.Avatar,
		Bio:        account.Note,
		Followers:  account.FollowersCount,
		Following:  account.FollowingCount,
	}, OutcomeSuccess
}
