package search

import "fmt"

// Status is the orchestrator's lifecycle state.
type Status int

const (
	StatusInitializing Status = iota
	StatusSearching
	// StatusConverged means the target count of unique, window-qualifying
	// conformers was reached.
	StatusConverged
	// StatusExhausted means the stagnation limit or round budget ran out.
	// It is a degraded but valid outcome carrying whatever the pool holds.
	StatusExhausted
	// StatusFailed means a structural precondition was never met and the
	// result carries no conformers.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusSearching:
		return "SEARCHING"
	case StatusConverged:
		return "CONVERGED"
	case StatusExhausted:
		return "EXHAUSTED"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether the status ends the search.
func (s Status) Terminal() bool {
	return s == StatusConverged || s == StatusExhausted || s == StatusFailed
}

// SearchState holds the orchestrator's round counters.  Only the
// orchestrator writes it; everything else receives copies.
type SearchState struct {
	// Round is the number of completed rounds.
	Round int

	// Draws counts constraint sets drawn across all rounds, duplicates
	// included.
	Draws int

	// Embedded counts candidates that passed embedding.
	Embedded int

	// EmbedRejected counts draws the geometry service rejected.
	EmbedRejected int

	// NonConvergent counts candidates whose minimization ran out of steps.
	NonConvergent int

	// IntegrityRejected counts candidates that converged into a broken ring.
	IntegrityRejected int

	// Duplicates counts pool insertions resolved as duplicates of an
	// existing member, whether kept or replaced.
	Duplicates int

	// Accepted counts insertions that grew the pool.
	Accepted int

	// StagnantRounds counts consecutive rounds with zero new pool
	// insertions.
	StagnantRounds int
}
