package enrichment

import (
	"context"
	"encoding/json"

	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"
)

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
}

func (r *Resolver) fetchGitHub(ctx context.Context, username string) (models.UserProfile, Outcome) {
	req := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github.v3+json")
	if r.cfg.GitHubToken != "" {
		req.SetHeader("Authorization", "token "+r.cfg.GitHubToken)
	}

	resp, err := req.Get(r.api.github + "/users/" + username)
	if err != nil {
		return models.UserProfile{}, OutcomeTransient
	}
	if resp.StatusCode() != 200 {
		if resp.StatusCode() == 403 && resp.Header().Get("X-RateLimit-Remaining") == "0" {
			logrus.Warnf("GitHub API rate limit exceeded, reset at %s", resp.Header().Get("X-RateLimit-Reset"))
		}
		return models.UserProfile{}, classifyStatus(resp.StatusCode())
	}

	var user githubUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return models.UserProfile{}, OutcomePermanent
	}

	return models.UserProfile{
		Username:   user.Login,
		Name:       user.Name,
		Email:      user.Email,
		ProfilePic: user.AvatarURL,
		Bio:        user.Bio,
		Location:   user.Location,
		Followers:  user.Followers,
		Following:  user.Following,
	}, OutcomeSuccess
}
