package enrichment

import "fmt"

// Outcome classifies the result of one profile fetch so that the
// retry-versus-degrade decision is explicit rather than buried in
// catch-all error handling.
type Outcome int

const (
	// OutcomeSuccess means the strategy produced a usable profile.
	OutcomeSuccess Outcome = iota
	// OutcomeTransient covers failures worth retrying: timeouts, 429 and
	// 5xx responses. The HTTP client retries these automatically; an
	// OutcomeTransient reaching the resolver means retries were exhausted.
	OutcomeTransient
	// OutcomePermanent covers failures no retry can fix: 403, malformed
	// payloads, missing credentials, unsupported platforms.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// transientStatuses are the HTTP statuses retried on idempotent reads.
var transientStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// classifyStatus maps a non-200 HTTP status to an outcome.
func classifyStatus(status int) Outcome {
	if transientStatuses[status] {
		return OutcomeTransient
	}
	return OutcomePermanent
}
