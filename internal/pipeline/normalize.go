package pipeline

import "github.com/osintlab/socialscope/internal/models"

// Normalize maps one raw collector record into the canonical Post shape.
// It is a pure transform: the second return value is false when the input
// is empty and no post can be produced. Field aliases are resolved
// first-non-empty-wins; everything missing defaults to the empty string.
// The sentiment field is left unset here and filled downstream.
func Normalize(raw models.RawRecord, platform string) (models.Post, bool) {
	if len(raw) == 0 {
		return models.Post{}, false
	}

	return models.Post{
		Platform:   platform,
		User:       firstNonEmpty(raw["user"], raw["username"], "N/A"),
		Username:   raw["username"],
		Name:       raw["name"],
		Email:      raw["email"],
		ProfilePic: raw["profile_pic"],
		// Left as the raw vendor string: source formats are heterogeneous
		// (Unix epoch, ISO 8601, vendor-specific) and are not reconciled.
		Timestamp: firstNonEmpty(raw["timestamp"], raw["date"], raw["created_at"]),
		Text:      firstNonEmpty(raw["text"], raw["caption"], raw["description"]),
		URL:       firstNonEmpty(raw["url"], raw["link"]),
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
