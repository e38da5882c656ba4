package review

import (
	"fmt"
	"time"

	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// State is the lifecycle state of a pull request.
type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
	StateMerged State = "MERGED"
)

// ParseState validates a GitHub PullRequestState value.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateOpen, StateClosed, StateMerged:
		return State(s), nil
	default:
		return "", fmt.Errorf("unknown pull request state %q", s)
	}
}

// PullRequest is a fetched pull request with its classified timeline.
// Events keep arrival order; nothing here is sorted.
type PullRequest struct {
	Number       int
	URL          string
	Author       string
	CreatedAt    time.Time
	IsDraft      bool
	State        State
	MergedBy     string
	ChangedFiles int
	Additions    int
	Deletions    int
	Events       []timeline.Event
}

// DisplayState is the state with a draft marker for open drafts.
func (pr PullRequest) DisplayState() string {
	if pr.State == StateOpen && pr.IsDraft {
		return string(pr.State) + " - DRAFT"
	}
	return string(pr.State)
}

func (pr PullRequest) String() string {
	return fmt.Sprintf("[%d] by %s, review events: %d", pr.Number, pr.Author, len(pr.Events))
}
