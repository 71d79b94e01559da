package pipeline

import (
	"regexp"
	"strings"

	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	urlPattern    = regexp.MustCompile(`http\S+`)
	symbolPattern = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

// CleanText strips URL tokens and any character outside the
// alphanumeric/whitespace set, then trims. Symbol removal can splice a new
// http token together (punctuation-broken or defanged URLs), so the two
// substitutions repeat until the text stops changing. Interior double
// spaces left behind by token removal are preserved. CleanText is
// idempotent.
func CleanText(text string) string {
	for {
		cleaned := urlPattern.ReplaceAllString(text, "")
		cleaned = symbolPattern.ReplaceAllString(cleaned, "")
		if cleaned == text {
			break
		}
		text = cleaned
	}
	return strings.TrimSpace(text)
}

// LanguageDetector identifies the language of a piece of text. ok is false
// when detection fails; the caller drops the record in that case.
type LanguageDetector interface {
	Detect(text string) (code string, ok bool)
}

// PolarityScorer scores text polarity on a continuous [-1, 1] scale.
type PolarityScorer interface {
	Score(text string) float64
}

// FilterLanguage keeps only posts whose cleaned text is detected as the
// target language. Posts with empty or whitespace-only text are dropped
// before detection; detection failures drop the post and log the cause,
// never propagating an error.
func FilterLanguage(posts []models.Post, detector LanguageDetector, target string) []models.Post {
	var kept []models.Post
	for _, p := range posts {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		code, ok := detector.Detect(p.Text)
		if !ok {
			logrus.Debugf("Language detection failed for %s post %q, dropping", p.Platform, truncate(p.Text, 60))
			continue
		}
		if strings.EqualFold(code, target) {
			kept = append(kept, p)
		}
	}
	return kept
}

// LabelSentiment fills in the sentiment label for each post from the
// scorer's polarity: > 0.1 Positive, < -0.1 Negative, otherwise Neutral.
// Posts with empty text get Neutral without being scored.
func LabelSentiment(posts []models.Post, scorer PolarityScorer) {
	for i := range posts {
		posts[i].Sentiment = labelFor(posts[i].Text, scorer)
	}
}

func labelFor(text string, scorer PolarityScorer) models.Sentiment {
	if text == "" {
		return models.SentimentNeutral
	}
	polarity := scorer.Score(text)
	switch {
	case polarity > 0.1:
		return models.SentimentPositive
	case polarity < -0.1:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
