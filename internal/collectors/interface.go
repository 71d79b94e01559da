package collectors

import (
	"context"

	"github.com/osintlab/socialscope/internal/models"
)

// Source defines the contract for all platform collectors. Fetch returns
// loosely-shaped raw records; the pipeline's normalizer treats every field
// as optional.
type Source interface {
	Name() string
	Enabled() bool
	Fetch(ctx context.Context, query string, limit int) ([]models.RawRecord, error)
}
