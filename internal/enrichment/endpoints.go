package enrichment

import "github.com/osintlab/socialscope/internal/config"

// endpoints holds the base URLs of every profile-data source. Kept on the
// resolver so tests can point strategies at a local server.
type endpoints struct {
	github    string
	twitter   string
	instagram string
	facebook  string
	tiktok    string
	reddit    string
	mastodon  string
}

func defaultEndpoints(cfg *config.Config) endpoints {
	return endpoints{
		github:    "https://api.github.com",
		twitter:   "https://twitter154.p.rapidapi.com",
		instagram: "https://instagram-scraper-2022.p.rapidapi.com",
		facebook:  "https://facebook-profile-data.p.rapidapi.com",
		tiktok:    "https://tiktok-api6.p.rapidapi.com",
		reddit:    "https://www.reddit.com",
		mastodon:  cfg.MastodonBaseURL,
	}
}
