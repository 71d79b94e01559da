package imagematch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	// Register the raster formats profile pictures come in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/go-resty/resty/v2"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/sirupsen/logrus"
)

// Candidate is one stored profile image considered for a reverse search.
type Candidate struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	Name     string `json:"name"`
	ImageURL string `json:"profile_pic"`
}

// Match is a candidate whose image landed within the distance threshold.
type Match struct {
	Candidate
	Distance int `json:"distance"`
}

// Matcher ranks stored profile images by perceptual similarity to a query
// image. Similarity is the Hamming distance between perception hashes:
// visually similar images produce hashes with few differing bits.
type Matcher struct {
	client    *resty.Client
	threshold int
	workers   int
}

// NewMatcher builds a matcher from the image-fetch and threshold settings
// in cfg. The threshold is a tunable design parameter, not a constant.
func NewMatcher(cfg *config.Config) *Matcher {
	return NewMatcherWithClient(cfg, resty.New().
		SetTimeout(time.Duration(cfg.ImageTimeoutSeconds)*time.Second).
		SetHeader("User-Agent", "socialscope/1.0"))
}

// NewMatcherWithClient builds a matcher around an existing client.
func NewMatcherWithClient(cfg *config.Config, client *resty.Client) *Matcher {
	workers := cfg.MatchWorkers
	if workers < 1 {
		workers = 1
	}
	return &Matcher{
		client:    client,
		threshold: cfg.HashThreshold,
		workers:   workers,
	}
}

// DecodeImage decodes an uploaded raster image and is the boundary check
// for reverse search: a nil error here means the query is hashable.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Search hashes the query image once, then fetches and hashes every
// candidate's profile image, keeping those within the distance threshold.
// Candidates whose image cannot be fetched or decoded are excluded without
// failing the search. Results are ordered ascending by distance; equal
// distances keep candidate input order.
func (m *Matcher) Search(ctx context.Context, query image.Image, candidates []Candidate) ([]Match, error) {
	queryHash, err := goimagehash.PerceptionHash(query)
	if err != nil {
		return nil, fmt.Errorf("failed to hash query image: %w", err)
	}

	type indexed struct {
		match Match
		order int
	}

	var (
		mu      sync.Mutex
		results []indexed
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, m.workers)

	for i, candidate := range candidates {
		wg.Add(1)
		go func(order int, c Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			distance, ok := m.distanceToCandidate(ctx, queryHash, c)
			if !ok || distance > m.threshold {
				return
			}

			mu.Lock()
			results = append(results, indexed{match: Match{Candidate: c, Distance: distance}, order: order})
			mu.Unlock()
		}(i, candidate)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].match.Distance != results[j].match.Distance {
			return results[i].match.Distance < results[j].match.Distance
		}
		return results[i].order < results[j].order
	})

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, r.match)
	}
	return matches, nil
}

// distanceToCandidate fetches and hashes one candidate image. ok is false
// when the image cannot be retrieved or decoded; the candidate is then
// dropped from ranking rather than failing the search.
func (m *Matcher) distanceToCandidate(ctx context.Context, queryHash *goimagehash.ImageHash, c Candidate) (int, bool) {
	if c.ImageURL == "" {
		return 0, false
	}

	resp, err := m.client.R().SetContext(ctx).Get(c.ImageURL)
	if err != nil {
		logrus.Debugf("Skipping %s/%s: image fetch failed: %v", c.Platform, c.Username, err)
		return 0, false
	}
	if resp.StatusCode() != 200 {
		logrus.Debugf("Skipping %s/%s: image fetch returned status %d", c.Platform, c.Username, resp.StatusCode())
		return 0, false
	}

	img, err := DecodeImage(resp.Body())
	if err != nil {
		logrus.Debugf("Skipping %s/%s: %v", c.Platform, c.Username, err)
		return 0, false
	}

	candidateHash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		logrus.Debugf("Skipping %s/%s: hashing failed: %v", c.Platform, c.Username, err)
		return 0, false
	}

	distance, err := queryHash.Distance(candidateHash)
	if err != nil {
		logrus.Debugf("Skipping %s/%s: distance failed: %v", c.Platform, c.Username, err)
		return 0, false
	}
	return distance, true
}
