package moments

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DayLayout is the dayStr format.
const DayLayout = "2006-01-02"

// StreakState is the only part of UserStats that is persisted.
type StreakState struct {
	StreakDays     int    `json:"streakDays"`
	LastRecordDate string `json:"lastRecordDate"`
}

// DayString returns the calendar day of t in loc.
func DayString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// PreviousDay returns the calendar day before day in loc.
func PreviousDay(day string, loc *time.Location) (string, error) {
	d, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, -1).Format(DayLayout), nil
}

// AdvanceStreak applies one creation event on today to prev. The checks run
// in a fixed order: extend when the last record was yesterday, otherwise reset
// to 1 unless the last record is already today, in which case the count stays.
func AdvanceStreak(prev StreakState, today string, loc *time.Location) StreakState {
	next := StreakState{StreakDays: prev.StreakDays, LastRecordDate: today}

	yesterday, err := PreviousDay(today, loc)
	if err == nil && prev.LastRecordDate == yesterday {
		next.StreakDays = prev.StreakDays + 1
	} else if prev.LastRecordDate != today {
		next.StreakDays = 1
	}
	return next
}

// ComputeTotals counts moments and sums their sunshine.
func ComputeTotals(ms []Moment) (total, sunshine int) {
	for _, m := range ms {
		sunshine += m.SunshineCount
	}
	return len(ms), sunshine
}

// Stats returns the persisted streak state combined with totals computed from
// the live collection. Nothing is written.
func (s *Store) Stats(ctx context.Context) UserStats {
	streak, _ := s.loadStreak(ctx)
	total, sunshine := ComputeTotals(s.ListMoments(ctx))
	return UserStats{
		StreakDays:     streak.StreakDays,
		TotalMoments:   total,
		TotalSunshine:  sunshine,
		LastRecordDate: streak.LastRecordDate,
	}
}

func (s *Store) loadStreak(ctx context.Context) (StreakState, int64) {
	var st StreakState
	rev, ok := s.loadSlot(ctx, StatsKey, &st)
	if !ok {
		return StreakState{}, rev
	}
	return st, rev
}

func (s *Store) advanceStreak(ctx context.Context, today string) error {
	return s.update(ctx, StatsKey, func(ctx context.Context) error {
		prev, rev := s.loadStreak(ctx)
		next := AdvanceStreak(prev, today, s.loc)
		if err := s.storeSlot(ctx, StatsKey, next, rev); err != nil {
			return err
		}
		s.logger.Debug("streak advanced",
			zap.String("day", today),
			zap.String("previous_day", prev.LastRecordDate),
			zap.Int("from", prev.StreakDays),
			zap.Int("to", next.StreakDays))
		return nil
	})
}

// GrowthStage is the illustration shown for a streak length.
type GrowthStage string

const (
	StageSeed    GrowthStage = "seed"
	StageSprout  GrowthStage = "sprout"
	StageSapling GrowthStage = "sapling"
	StageTree    GrowthStage = "tree"
)

func GrowthStageFor(streak int) GrowthStage {
	switch {
	case streak >= 21:
		return StageTree
	case streak >= 8:
		return StageSapling
	case streak >= 3:
		return StageSprout
	default:
		return StageSeed
	}
}
