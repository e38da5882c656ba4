package ghclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-github/v56/github"

	"github.com/SatelliteQE/repo-metrics/internal/review"
)

// ErrRosterNotFound reports that tier reviewers cannot be resolved.
var ErrRosterNotFound = errors.New("reviewer roster not found")

// RosterError explains a missing roster with the teams that do exist.
type RosterError struct {
	Org     string
	Repo    string
	Missing []string
	Found   []string
}

func (e *RosterError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s/%s", ErrRosterNotFound, e.Org, e.Repo)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": team(s) %s not in organization %s", strings.Join(e.Missing, ", "), e.Org)
	} else {
		fmt.Fprintf(&b, ": no tier1/tier2 teams configured")
	}
	fmt.Fprintf(&b, "; teams found in %s: [%s]", e.Org, strings.Join(e.Found, ", "))
	return b.String()
}

func (e *RosterError) Is(target error) bool { return target == ErrRosterNotFound }

// Roster resolves the tier1 and tier2 team slugs of org to member logins.
// Empty slugs mean the repository has no teams configured.
func (c *Client) Roster(ctx context.Context, org, repo, tier1Slug, tier2Slug string) (review.Roster, error) {
	teams, err := c.teams(ctx, org)
	if err != nil {
		return review.Roster{}, err
	}

	rerr := &RosterError{Org: org, Repo: repo}
	for _, t := range teams {
		rerr.Found = append(rerr.Found, t.GetName())
	}
	sort.Strings(rerr.Found)

	if tier1Slug == "" || tier2Slug == "" {
		return review.Roster{}, rerr
	}
	slugs := make([]string, 0, 2)
	for _, want := range []string{tier1Slug, tier2Slug} {
		slug, ok := findTeam(teams, want)
		if !ok {
			rerr.Missing = append(rerr.Missing, want)
		}
		slugs = append(slugs, slug)
	}
	if len(rerr.Missing) > 0 {
		return review.Roster{}, rerr
	}
	tier1Slug, tier2Slug = slugs[0], slugs[1]

	tier1, err := c.members(ctx, org, tier1Slug)
	if err != nil {
		return review.Roster{}, err
	}
	tier2, err := c.members(ctx, org, tier2Slug)
	if err != nil {
		return review.Roster{}, err
	}

	c.log.Info("resolved reviewer roster", "org", org, "repo", repo, "tier1", len(tier1), "tier2", len(tier2))
	return review.NewRoster(tier1, tier2), nil
}

// findTeam matches a configured team by slug or display name and returns its slug.
func findTeam(teams []*github.Team, want string) (string, bool) {
	for _, t := range teams {
		if strings.EqualFold(t.GetSlug(), want) || strings.EqualFold(t.GetName(), want) {
			return t.GetSlug(), true
		}
	}
	return "", false
}

func (c *Client) teams(ctx context.Context, org string) ([]*github.Team, error) {
	opt := &github.ListOptions{PerPage: 100}
	var all []*github.Team
	for {
		teams, resp, err := c.gh.Teams.ListTeams(ctx, org, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list teams of %s: %w", org, err)
		}
		all = append(all, teams...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) members(ctx context.Context, org, slug string) ([]string, error) {
	opt := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var logins []string
	for {
		users, resp, err := c.gh.Teams.ListTeamMembersBySlug(ctx, org, slug, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s/%s: %w", org, slug, err)
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return logins, nil
}
