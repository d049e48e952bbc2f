package scrape

import "errors"

// ErrNavigation marks a fatal failure to load the search results page. It is
// the only failure class that aborts a run; everything else is absorbed
// per-item and reflected in the final counts.
var ErrNavigation = errors.New("scrape: navigation failed")

// FailureReason classifies a per-candidate download failure.
type FailureReason string

const (
	// ReasonNone means the candidate was downloaded and persisted.
	ReasonNone FailureReason = ""

	// ReasonFetch covers timeouts, non-2xx statuses, and transport errors.
	ReasonFetch FailureReason = "fetch"

	// ReasonUndersized marks payloads below the minimum size threshold.
	ReasonUndersized FailureReason = "undersized"

	// ReasonBadSignature marks payloads with no recognized image signature.
	ReasonBadSignature FailureReason = "bad_signature"

	// ReasonWrite marks filesystem persistence failures.
	ReasonWrite FailureReason = "write"

	// ReasonDuplicate marks URLs already downloaded earlier in a batch run.
	ReasonDuplicate FailureReason = "duplicate"
)

// Outcome records the fate of one candidate in the download phase. Failures
// are values aggregated by the orchestrator, never silent discards.
type Outcome struct {
	Candidate Candidate
	Filename  string
	Path      string
	Format    string
	Size      int
	Reason    FailureReason
	Err       error
}

// OK reports whether the candidate was persisted.
func (o Outcome) OK() bool {
	return o.Reason == ReasonNone
}
