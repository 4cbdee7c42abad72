package moments

import (
	"context"
	"sort"
	"time"
)

// FeedSample is an externally authored entry mixed into the public feed.
// Samples are never written to storage.
type FeedSample struct {
	ID            string
	Content       string
	Tags          []string
	Age           time.Duration // how long before "now" it was posted
	SunshineCount int
	AuthorAlias   string
}

var DefaultSamples = []FeedSample{
	{
		ID:            "m1",
		Content:       "The oden at the corner store is steaming. Winter is really here.",
		Tags:          []string{"#small-joys"},
		Age:           100 * time.Second,
		SunshineCount: 12,
		AuthorAlias:   "warm hedgehog",
	},
	{
		ID:            "m2",
		Content:       "Fed a stray cat some sausage and it rubbed against my leg.",
		Tags:          []string{"#loved"},
		Age:           500 * time.Second,
		SunshineCount: 34,
		AuthorAlias:   "clear cloud",
	},
	{
		ID:            "m3",
		Content:       "Finally finished the report I'd been putting off all week. Bubble tea for me!",
		Tags:          []string{"#small-wins"},
		Age:           800 * time.Second,
		SunshineCount: 8,
		AuthorAlias:   "diligent snail",
	},
}

// ListPublicMoments returns own public moments (IsMine) merged with the feed
// samples, newest first.
func (s *Store) ListPublicMoments(ctx context.Context) []Moment {
	var feed []Moment
	for _, m := range s.ListMoments(ctx) {
		if m.IsPublic {
			feed = append(feed, m)
		}
	}
	feed = append(feed, s.sampleMoments()...)

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt > feed[j].CreatedAt
	})
	return feed
}

func (s *Store) sampleMoments() []Moment {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Moment, 0, len(s.samples))
	for _, sample := range s.samples {
		created := now.Add(-sample.Age)
		out = append(out, Moment{
			ID:            sample.ID,
			Content:       sample.Content,
			Tags:          sample.Tags,
			CreatedAt:     created.UnixMilli(),
			DayStr:        DayString(created, s.loc),
			IsPublic:      true,
			SunshineCount: sample.SunshineCount + s.feedSunshine[sample.ID],
			AuthorAlias:   sample.AuthorAlias,
			IsMine:        false,
		})
	}
	return out
}

func (s *Store) isSample(id string) bool {
	for _, sample := range s.samples {
		if sample.ID == id {
			return true
		}
	}
	return false
}

// SendSunshine gives one sunshine to a feed entry and returns the refreshed
// feed. Sunshine on own public moments is persisted; sunshine on samples only
// lives as long as this Store. Unknown or private ids are ignored.
func (s *Store) SendSunshine(ctx context.Context, id string) ([]Moment, error) {
	if s.isSample(id) {
		s.mu.Lock()
		s.feedSunshine[id]++
		s.mu.Unlock()
		return s.ListPublicMoments(ctx), nil
	}

	_, err := s.mutateMoments(ctx, func(current []Moment) ([]Moment, bool) {
		for i := range current {
			if current[i].ID == id && current[i].IsPublic {
				current[i].SunshineCount++
				return current, true
			}
		}
		return current, false
	})
	if err != nil {
		return nil, err
	}
	return s.ListPublicMoments(ctx), nil
}

// ReceivedSunshine lists own moments that have received any sunshine.
func (s *Store) ReceivedSunshine(ctx context.Context) []Moment {
	var out []Moment
	for _, m := range s.ListMoments(ctx) {
		if m.SunshineCount > 0 {
			out = append(out, m)
		}
	}
	return out
}
