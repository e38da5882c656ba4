package review

import (
	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// Roster holds the tier1 and tier2 reviewer logins of one repository.
// It is built once per run and must not be changed afterwards.
type Roster struct {
	tier1 map[string]struct{}
	tier2 map[string]struct{}
}

func NewRoster(tier1, tier2 []string) Roster {
	return Roster{tier1: toSet(tier1), tier2: toSet(tier2)}
}

func toSet(logins []string) map[string]struct{} {
	set := make(map[string]struct{}, len(logins))
	for _, l := range logins {
		set[l] = struct{}{}
	}
	return set
}

func (r Roster) IsTier1(login string) bool {
	_, ok := r.tier1[login]
	return ok
}

func (r Roster) IsTier2(login string) bool {
	_, ok := r.tier2[login]
	return ok
}

// Tiered reports whether login is in either tier.
func (r Roster) Tiered(login string) bool {
	return r.IsTier1(login) || r.IsTier2(login)
}

// Partition splits review actions by reviewer tier.
type Partition struct {
	Tier1   []timeline.Event
	Tier2   []timeline.Event
	NonTier []timeline.Event
}

// Partition classifies events by author. A login listed in both tiers lands
// in both tier partitions; NonTier holds everything outside the union.
// Input order is preserved within each partition.
func (r Roster) Partition(events []timeline.Event) Partition {
	var p Partition
	for _, e := range events {
		login := e.Author()
		if r.IsTier1(login) {
			p.Tier1 = append(p.Tier1, e)
		}
		if r.IsTier2(login) {
			p.Tier2 = append(p.Tier2, e)
		}
		if !r.Tiered(login) {
			p.NonTier = append(p.NonTier, e)
		}
	}
	return p
}
