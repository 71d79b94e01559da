package pipeline

import (
	"strings"

	"github.com/grassmudhorses/vader-go/lexicon"
	"github.com/grassmudhorses/vader-go/sentitext"
	"github.com/pemistahl/lingua-go"
)

// LinguaDetector is the default LanguageDetector, backed by lingua-go.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over all supported spoken languages.
// Construction is relatively expensive (language models are loaded), so
// the orchestrator builds it once and shares it across runs.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllSpokenLanguages().
			Build(),
	}
}

// Detect returns the lower-cased ISO 639-1 code of the detected language.
func (d *LinguaDetector) Detect(text string) (string, bool) {
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}

// VaderScorer is the default PolarityScorer, backed by the VADER lexicon.
// The compound score it produces is already normalized to [-1, 1].
type VaderScorer struct{}

func (VaderScorer) Score(text string) float64 {
	parsed := sentitext.Parse(text, lexicon.DefaultLexicon)
	return sentitext.PolarityScore(parsed).Compound
}
