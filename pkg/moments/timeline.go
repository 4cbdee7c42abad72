package moments

import "context"

// DayGroup holds the moments recorded on one dayStr.
type DayGroup struct {
	Day     string   `json:"day"`
	Moments []Moment `json:"moments"`
}

// GroupByDay buckets ms by DayStr. Groups keep the order in which their day
// first appears in ms, and moments keep their relative order.
func GroupByDay(ms []Moment) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)
	for _, m := range ms {
		i, ok := index[m.DayStr]
		if !ok {
			i = len(groups)
			index[m.DayStr] = i
			groups = append(groups, DayGroup{Day: m.DayStr})
		}
		groups[i].Moments = append(groups[i].Moments, m)
	}
	return groups
}

// Timeline returns own moments grouped by day, newest day first.
func (s *Store) Timeline(ctx context.Context) []DayGroup {
	return GroupByDay(s.ListMoments(ctx))
}
