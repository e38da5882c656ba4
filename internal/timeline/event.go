package timeline

import "time"

// TimestampLayout is the format GitHub uses for createdAt fields.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Review states reported by GitHub. Other values pass through untouched.
const (
	StateApproved         = "APPROVED"
	StateCommented        = "COMMENTED"
	StateChangesRequested = "CHANGES_REQUESTED"
)

// Event is one canonical timeline entry of a pull request.
// The concrete type is one of Comment, Review, ConvertedToDraft or ReadyForReview.
type Event interface {
	Author() string
	OccurredAt() time.Time
	event()
}

type base struct {
	author     string
	occurredAt time.Time
}

func (b base) Author() string       { return b.author }
func (b base) OccurredAt() time.Time { return b.occurredAt }
func (base) event()                  {}

// Comment is a comment on the PR conversation page.
type Comment struct{ base }

// Review is a submitted pull request review.
type Review struct {
	base
	State        string
	CommentCount int
}

// Approved reports whether the review approved the PR.
func (r Review) Approved() bool { return r.State == StateApproved }

// ConvertedToDraft marks the PR moving back into draft.
type ConvertedToDraft struct{ base }

// ReadyForReview marks the PR leaving draft.
type ReadyForReview struct{ base }

func NewComment(author string, at time.Time) Comment {
	return Comment{base{author: author, occurredAt: at}}
}

func NewReview(author string, at time.Time, state string, comments int) Review {
	return Review{base: base{author: author, occurredAt: at}, State: state, CommentCount: comments}
}

func NewConvertedToDraft(author string, at time.Time) ConvertedToDraft {
	return ConvertedToDraft{base{author: author, occurredAt: at}}
}

func NewReadyForReview(author string, at time.Time) ReadyForReview {
	return ReadyForReview{base{author: author, occurredAt: at}}
}

// IsReviewAction reports whether e counts as review activity (a review or a comment).
func IsReviewAction(e Event) bool {
	switch e.(type) {
	case Comment, Review:
		return true
	default:
		return false
	}
}

// Kind returns a short name for the event variant.
func Kind(e Event) string {
	switch e.(type) {
	case Comment:
		return "comment"
	case Review:
		return "review"
	case ConvertedToDraft:
		return "converted_to_draft"
	case ReadyForReview:
		return "ready_for_review"
	default:
		return "unknown"
	}
}
