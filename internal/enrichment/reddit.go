package enrichment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/osintlab/socialscope/internal/models"
)

type redditAboutResponse struct {
	Data struct {
		IconImg     string `json:"icon_img"`
		Subscribers int    `json:"subscribers"`
		Subreddit   struct {
			PublicDescription string `json:"public_description"`
		} `json:"subreddit"`
	} `json:"data"`
}

func (r *Resolver) fetchReddit(ctx context.Context, username string) (models.UserProfile, Outcome) {
	resp, err := r.client.R().
		SetContext(ctx).
		Get(r.api.reddit + "/user/" + username + "/about.json")
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var body redditAboutResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	// Icon URLs come back with HTML-escaped query strings; strip them.
	icon := body.Data.IconImg
	if i := strings.Index(icon, "?"); i >= 0 {
		icon = icon[:i]
	}

	// Reddit exposes neither real names nor a following count.
	return models.UserProfile{
		Username:   username,
		ProfilePic: icon,
		Bio:        body.Data.Subreddit.PublicDescription,
		Followers:  body.Data.Subscribers,
	}, OutcomeSuccess
}
