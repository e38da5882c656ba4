package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownEventType = errors.New("unknown timeline event type")
	ErrBadTimestamp     = errors.New("malformed timestamp")
	ErrMissingField     = errors.New("missing required field")
)

// Raw GraphQL discriminators.
const (
	TypeIssueComment        = "IssueComment"
	TypePullRequestReview   = "PullRequestReview"
	TypeConvertToDraftEvent = "ConvertToDraftEvent"
	TypeReadyForReviewEvent = "ReadyForReviewEvent"
)

// Automation accounts whose activity is not human review.
var excludedLogins = []string{
	"codecov",  // coverage reports
	"pyup-bot", // dependency updates
}

// Login is the {login} sub-object GitHub nests under author and actor.
type Login struct {
	Login string `json:"login"`
}

// Count is a {totalCount} connection summary.
type Count struct {
	TotalCount int `json:"totalCount"`
}

// RawEvent is a timeline node as returned by the GraphQL API.
type RawEvent struct {
	Typename  string `json:"__typename"`
	CreatedAt string `json:"createdAt"`
	Author    *Login `json:"author,omitempty"`
	Actor     *Login `json:"actor,omitempty"`
	State     string `json:"state,omitempty"`
	Comments  *Count `json:"comments,omitempty"`
}

// login returns author.login, falling back to actor.login.
func (r RawEvent) login() string {
	if r.Author != nil && r.Author.Login != "" {
		return r.Author.Login
	}
	if r.Actor != nil {
		return r.Actor.Login
	}
	return ""
}

// Classifier turns raw timeline nodes into canonical events.
type Classifier struct {
	excluded map[string]struct{}
}

// NewClassifier returns a classifier that drops the built-in automation
// accounts plus any extra logins given.
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{excluded: make(map[string]struct{}, len(excludedLogins)+len(extra))}
	for _, l := range excludedLogins {
		c.excluded[strings.ToLower(l)] = struct{}{}
	}
	for _, l := range extra {
		if l = strings.TrimSpace(l); l != "" {
			c.excluded[strings.ToLower(l)] = struct{}{}
		}
	}
	return c
}

// Excluded reports whether login belongs to an ignored automation account.
func (c *Classifier) Excluded(login string) bool {
	_, ok := c.excluded[strings.ToLower(login)]
	return ok
}

// Classify converts raw into an Event. ok is false when the event was
// dropped as automation noise.
func (c *Classifier) Classify(raw RawEvent) (e Event, ok bool, err error) {
	login := raw.login()
	if login != "" && c.Excluded(login) {
		return nil, false, nil
	}

	var build func(author string, at time.Time) Event
	switch raw.Typename {
	case TypeIssueComment:
		build = func(a string, t time.Time) Event { return NewComment(a, t) }
	case TypePullRequestReview:
		comments := 0
		if raw.Comments != nil {
			comments = raw.Comments.TotalCount
		}
		build = func(a string, t time.Time) Event { return NewReview(a, t, raw.State, comments) }
	case TypeConvertToDraftEvent:
		build = func(a string, t time.Time) Event { return NewConvertedToDraft(a, t) }
	case TypeReadyForReviewEvent:
		build = func(a string, t time.Time) Event { return NewReadyForReview(a, t) }
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownEventType, raw.Typename)
	}

	if login == "" {
		return nil, false, fmt.Errorf("%w: %s has neither author nor actor login", ErrMissingField, raw.Typename)
	}

	at, err := ParseTimestamp(raw.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("%s by %s: %w", raw.Typename, login, err)
	}

	return build(login, at), true, nil
}

// ClassifyAll classifies every raw event in arrival order, skipping noise.
// The first malformed event aborts the whole list.
func (c *Classifier) ClassifyAll(raws []RawEvent) ([]Event, error) {
	events := make([]Event, 0, len(raws))
	for i, raw := range raws {
		e, ok, err := c.Classify(raw)
		if err != nil {
			return nil, fmt.Errorf("timeline item %d: %w", i, err)
		}
		if ok {
			events = append(events, e)
		}
	}
	return events, nil
}

// ParseTimestamp parses a GitHub createdAt value.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: createdAt", ErrMissingField)
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadTimestamp, s, err)
	}
	return t, nil
}
