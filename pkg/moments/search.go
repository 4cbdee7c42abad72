package moments

import (
	"context"
	"sort"
	"strings"
)

// MatchedMoment holds a Moment and how many of the query tags it carries.
type MatchedMoment struct {
	Moment
	MatchCount int `json:"matchCount"`
}

// RankByTags returns the moments carrying at least one of the query tags,
// most matches first and newest first among ties. Tags compare
// case-insensitively and the leading '#' is optional.
func RankByTags(ms []Moment, queryTags []string) []MatchedMoment {
	want := make(map[string]bool, len(queryTags))
	for _, t := range queryTags {
		if t = normalizeTag(t); t != "" {
			want[t] = true
		}
	}
	if len(want) == 0 {
		return []MatchedMoment{}
	}

	results := []MatchedMoment{}
	for _, m := range ms {
		seen := make(map[string]bool, len(m.Tags))
		count := 0
		for _, t := range m.Tags {
			t = normalizeTag(t)
			if want[t] && !seen[t] {
				seen[t] = true
				count++
			}
		}
		if count > 0 {
			results = append(results, MatchedMoment{Moment: m, MatchCount: count})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchCount != results[j].MatchCount {
			return results[i].MatchCount > results[j].MatchCount
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
}

// SearchByTags ranks own moments by how many of queryTags they carry.
func (s *Store) SearchByTags(ctx context.Context, queryTags []string) []MatchedMoment {
	return RankByTags(s.ListMoments(ctx), queryTags)
}
