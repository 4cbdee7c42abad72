package moments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unowned-ai/alive/pkg/db"
	"github.com/unowned-ai/alive/pkg/kv"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testClock hands out a fixed instant that tests move forward explicitly.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(day string) *testClock {
	c := &testClock{}
	c.setDay(day)
	return c
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// setDay moves the clock to noon UTC of day.
func (c *testClock) setDay(day string) {
	d, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = d.Add(12 * time.Hour)
	c.mu.Unlock()
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, clock *testClock, opts ...Option) (*Store, *kv.MemStore) {
	t.Helper()
	backing := kv.NewMemStore()
	base := []Option{WithClock(clock.Now), WithLocation(time.UTC)}
	return NewStore(backing, append(base, opts...)...), backing
}

func mustSave(t *testing.T, s *Store, content string) []Moment {
	t.Helper()
	ms, err := s.SaveMoment(context.Background(), content, nil, false, nil)
	require.NoError(t, err)
	return ms
}

func writeRaw(t *testing.T, backing kv.Store, key string, value string) {
	t.Helper()
	ctx := context.Background()
	var rev int64
	if item, err := backing.Get(ctx, key); err == nil {
		rev = item.Revision
	}
	_, err := backing.Put(ctx, key, []byte(value), rev)
	require.NoError(t, err)
}

func TestStats_EmptyStore(t *testing.T) {
	s, _ := newTestStore(t, newTestClock("2024-01-01"))

	assert.Equal(t, UserStats{StreakDays: 0, TotalMoments: 0, TotalSunshine: 0, LastRecordDate: ""}, s.Stats(context.Background()))
	assert.Empty(t, s.ListMoments(context.Background()))
}

func TestStreakScenario(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-01-01")
	s, _ := newTestStore(t, clock)

	mustSave(t, s, "A")
	assert.Equal(t, UserStats{StreakDays: 1, TotalMoments: 1, TotalSunshine: 0, LastRecordDate: "2024-01-01"}, s.Stats(ctx))

	clock.setDay("2024-01-02")
	mustSave(t, s, "B")
	assert.Equal(t, UserStats{StreakDays: 2, TotalMoments: 2, TotalSunshine: 0, LastRecordDate: "2024-01-02"}, s.Stats(ctx))

	clock.advance(time.Hour)
	mustSave(t, s, "C")
	assert.Equal(t, UserStats{StreakDays: 2, TotalMoments: 3, TotalSunshine: 0, LastRecordDate: "2024-01-02"}, s.Stats(ctx))

	clock.setDay("2024-01-05")
	mustSave(t, s, "D")
	assert.Equal(t, UserStats{StreakDays: 1, TotalMoments: 4, TotalSunshine: 0, LastRecordDate: "2024-01-05"}, s.Stats(ctx))
}

func TestStreak_SameDayDoesNotDoubleAdvance(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-03-10")
	s, _ := newTestStore(t, clock)

	mustSave(t, s, "first")
	before := s.Stats(ctx).StreakDays
	for i := 0; i < 3; i++ {
		clock.advance(time.Minute)
		mustSave(t, s, "again")
	}
	assert.Equal(t, before, s.Stats(ctx).StreakDays)
}

func TestStreak_ConsecutiveDaysExtend(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-02-27")
	s, _ := newTestStore(t, clock)

	// Crosses a leap day and a month boundary.
	days := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}
	for i, day := range days {
		clock.setDay(day)
		mustSave(t, s, day)
		assert.Equal(t, i+1, s.Stats(ctx).StreakDays, "after %s", day)
	}
}

func TestStreak_GapResets(t *testing.T) {
	for _, gap := range []int{2, 3, 30} {
		clock := newTestClock("2024-01-01")
		s, _ := newTestStore(t, clock)
		mustSave(t, s, "d")
		clock.setDay("2024-01-02")
		mustSave(t, s, "d+1")

		clock.setDay(time.Date(2024, 1, 2+gap, 0, 0, 0, 0, time.UTC).Format(DayLayout))
		mustSave(t, s, "later")
		assert.Equal(t, 1, s.Stats(context.Background()).StreakDays, "gap of %d days", gap)
	}
}

func TestDayStrUsesStoreCalendar(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
	shanghai := time.FixedZone("UTC+8", 8*60*60)
	s := NewStore(kv.NewMemStore(), WithClock(clock.Now), WithLocation(shanghai))

	ms := mustSave(t, s, "late evening in UTC, next morning locally")
	assert.Equal(t, "2024-01-02", ms[0].DayStr)
	assert.Equal(t, "2024-01-02", s.Stats(context.Background()).LastRecordDate)
}

func TestDerivedTotalsIgnoreCachedStats(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t, newTestClock("2024-01-01"))

	mustSave(t, s, "one")
	ms := mustSave(t, s, "two")
	sunshine := 5
	_, err := s.UpdateMoment(ctx, ms[0].ID, Patch{SunshineCount: &sunshine})
	require.NoError(t, err)

	writeRaw(t, backing, StatsKey, `{"streakDays":7,"lastRecordDate":"2023-12-31","totalMoments":99,"totalSunshine":1234}`)

	stats := s.Stats(ctx)
	assert.Equal(t, len(s.ListMoments(ctx)), stats.TotalMoments)
	assert.Equal(t, 2, stats.TotalMoments)
	assert.Equal(t, 5, stats.TotalSunshine)
	assert.Equal(t, 7, stats.StreakDays)
	assert.Equal(t, "2023-12-31", stats.LastRecordDate)

	// Reading never writes the recomputed totals back.
	item, err := backing.Get(ctx, StatsKey)
	require.NoError(t, err)
	assert.Contains(t, string(item.Value), `"totalMoments":99`)
}

func TestStatsSlotPersistsOnlyStreakFields(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t, newTestClock("2024-01-01"))
	mustSave(t, s, "x")

	item, err := backing.Get(ctx, StatsKey)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(item.Value, &raw))
	assert.Equal(t, map[string]any{"streakDays": float64(1), "lastRecordDate": "2024-01-01"}, raw)
}

func TestDeleteDoesNotAffectStreak(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-01-01")
	s, _ := newTestStore(t, clock)

	mustSave(t, s, "day one")
	clock.setDay("2024-01-02")
	mustSave(t, s, "day two, first")
	ms := mustSave(t, s, "day two, second")
	before := s.Stats(ctx)

	for _, m := range ms {
		if m.DayStr == "2024-01-02" {
			_, err := s.DeleteMoment(ctx, m.ID)
			require.NoError(t, err)
		}
	}

	after := s.Stats(ctx)
	assert.Equal(t, before.StreakDays, after.StreakDays)
	assert.Equal(t, before.LastRecordDate, after.LastRecordDate)
	assert.Equal(t, 1, after.TotalMoments)
}

func TestSaveMoment_UniqueIDsAndReverseOrder(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-01-01")
	s, _ := newTestStore(t, clock)

	const n = 25
	contents := make([]string, n)
	for i := 0; i < n; i++ {
		contents[i] = fmt.Sprintf("moment %d", i)
		mustSave(t, s, contents[i])
		clock.advance(time.Second)
	}

	ms := s.ListMoments(ctx)
	require.Len(t, ms, n)

	seen := make(map[string]bool)
	for i, m := range ms {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		assert.Equal(t, contents[n-1-i], m.Content)
		if i > 0 {
			assert.Greater(t, ms[i-1].CreatedAt, m.CreatedAt)
		}
	}
}

func TestSaveMoment_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-06-01")
	s, _ := newTestStore(t, clock, WithAuthorAlias("night owl"))

	tags := []string{"#good-food", "#loved", "#good-food"}
	images := []string{"data:image/png;base64,AAAA", "data:image/jpeg;base64,BBBB", "data:image/gif;base64,CCCC"}
	saved, err := s.SaveMoment(ctx, "dinner with friends", tags, true, images)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	want := Moment{
		ID:            saved[0].ID,
		Content:       "dinner with friends",
		Tags:          tags,
		Images:        images,
		CreatedAt:     clock.Now().UnixMilli(),
		DayStr:        "2024-06-01",
		IsPublic:      true,
		SunshineCount: 0,
		AuthorAlias:   "night owl",
		IsMine:        true,
	}
	if diff := cmp.Diff(want, saved[0]); diff != "" {
		t.Errorf("saved moment mismatch (-want +got):\n%s", diff)
	}

	reloaded := s.ListMoments(ctx)
	require.Len(t, reloaded, 1)
	if diff := cmp.Diff(want, reloaded[0]); diff != "" {
		t.Errorf("reloaded moment mismatch (-want +got):\n%s", diff)
	}
}

func TestIsMineNeverPersisted(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t, newTestClock("2024-01-01"))
	mustSave(t, s, "x")

	item, err := backing.Get(ctx, MomentsKey)
	require.NoError(t, err)
	assert.NotContains(t, string(item.Value), "isMine")

	// A record claiming isMine=false is still ours once read back.
	writeRaw(t, backing, MomentsKey, `[{"id":"legacy","content":"old","tags":[],"createdAt":1,"dayStr":"2020-01-01","isMine":false}]`)
	ms := s.ListMoments(ctx)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].IsMine)
}

func TestUpdateMoment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newTestClock("2024-01-01"))
	ms := mustSave(t, s, "hello")
	original := ms[0]

	public := true
	updated, err := s.UpdateMoment(ctx, original.ID, Patch{IsPublic: &public})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.True(t, updated[0].IsPublic)
	assert.Equal(t, original.ID, updated[0].ID)
	assert.Equal(t, original.CreatedAt, updated[0].CreatedAt)
	assert.Equal(t, original.DayStr, updated[0].DayStr)
	assert.True(t, s.ListMoments(ctx)[0].IsPublic)

	unchanged, err := s.UpdateMoment(ctx, "does-not-exist", Patch{IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)
}

func TestDeleteMoment_UnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newTestClock("2024-01-01"))
	mustSave(t, s, "a")
	before := mustSave(t, s, "b")

	after, err := s.DeleteMoment(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	after, err = s.DeleteMoment(ctx, before[0].ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[1], after[0])
}

func TestReadCorruptionFailsSoftAndLogs(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	s, backing := newTestStore(t, newTestClock("2024-01-01"), WithLogger(zap.New(core)))

	writeRaw(t, backing, MomentsKey, `{not json`)
	writeRaw(t, backing, StatsKey, `"just a string"`)
	writeRaw(t, backing, ProfileKey, `[1,2,3]`)

	assert.Empty(t, s.ListMoments(ctx))
	assert.Equal(t, UserStats{}, s.Stats(ctx))
	_, ok := s.Profile(ctx)
	assert.False(t, ok)

	malformed := logs.FilterMessage("malformed slot, using defaults")
	assert.GreaterOrEqual(t, malformed.Len(), 3)
	keys := make(map[string]bool)
	for _, entry := range malformed.All() {
		keys[entry.ContextMap()["key"].(string)] = true
	}
	assert.True(t, keys[MomentsKey] && keys[StatsKey] && keys[ProfileKey], "logged keys: %v", keys)

	// A corrupted collection is replaced by the next save.
	ms := mustSave(t, s, "fresh start")
	assert.Len(t, ms, 1)
	assert.Equal(t, 1, s.Stats(ctx).StreakDays)
}

// faultyStore fails reads or writes on demand. When putKey is set, only
// writes to that slot fail.
type faultyStore struct {
	kv.Store
	getErr error
	putErr error
	putKey string
}

func (f *faultyStore) Get(ctx context.Context, key string) (kv.Item, error) {
	if f.getErr != nil {
		return kv.Item{}, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Put(ctx context.Context, key string, value []byte, rev int64) (int64, error) {
	if f.putErr != nil && (f.putKey == "" || f.putKey == key) {
		return 0, f.putErr
	}
	return f.Store.Put(ctx, key, value, rev)
}

func (f *faultyStore) Delete(ctx context.Context, keys ...string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Delete(ctx, keys...)
}

func TestWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	quota := errors.New("quota exceeded")
	backing := &faultyStore{Store: kv.NewMemStore(), putErr: quota}
	clock := newTestClock("2024-01-01")
	s := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC))

	_, err := s.SaveMoment(ctx, "will not stick", nil, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, quota)

	_, err = s.UpdateMoment(ctx, "x", Patch{})
	assert.NoError(t, err, "no-op updates do not write")

	assert.ErrorIs(t, s.SaveProfile(ctx, DefaultProfile()), ErrWriteFailure)
	assert.ErrorIs(t, s.ClearAll(ctx), ErrWriteFailure)
	assert.ErrorIs(t, s.ClearProfile(ctx), ErrWriteFailure)

	backing.putErr = nil
	assert.Empty(t, s.ListMoments(ctx))
}

func TestStreakFailureAfterSaveIsDistinguishable(t *testing.T) {
	ctx := context.Background()
	quota := errors.New("quota exceeded")
	backing := &faultyStore{Store: kv.NewMemStore(), putErr: quota, putKey: StatsKey}
	clock := newTestClock("2024-01-01")
	s := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC), WithMaxRetries(1))

	ms, err := s.SaveMoment(ctx, "kept anyway", nil, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreakNotUpdated)
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, quota)
	require.Len(t, ms, 1)
	assert.Equal(t, "kept anyway", ms[0].Content)

	stored := s.ListMoments(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, ms[0].ID, stored[0].ID)
	assert.Equal(t, 0, s.Stats(ctx).StreakDays)

	// A failure of the moments slot itself is not reported as a streak failure.
	backing.putKey = MomentsKey
	ms, err = s.SaveMoment(ctx, "lost", nil, false, nil)
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.NotErrorIs(t, err, ErrStreakNotUpdated)
	assert.Nil(t, ms)
	assert.Len(t, s.ListMoments(ctx), 1)
}

func TestEmptyImagesReadBackUnchanged(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock("2024-01-01")
	s, _ := newTestStore(t, clock)

	saved, err := s.SaveMoment(ctx, "no pictures", []string{}, false, []string{})
	require.NoError(t, err)
	assert.Equal(t, saved, s.ListMoments(ctx))
}

func TestReadFailureDoesNotClobberSlot(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemStore()
	clock := newTestClock("2024-01-01")
	healthy := NewStore(mem, WithClock(clock.Now), WithLocation(time.UTC))
	mustSave(t, healthy, "keep me")

	backing := &faultyStore{Store: mem, getErr: errors.New("disk unreadable")}
	s := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC), WithMaxRetries(1))

	assert.Empty(t, s.ListMoments(ctx))
	_, err := s.SaveMoment(ctx, "would overwrite", nil, false, nil)
	assert.ErrorIs(t, err, ErrWriteFailure)

	ms := healthy.ListMoments(ctx)
	require.Len(t, ms, 1)
	assert.Equal(t, "keep me", ms[0].Content)
}

// conflictingStore rejects the first n writes as if another process had won.
type conflictingStore struct {
	kv.Store
	mu        sync.Mutex
	conflicts int
}

func (c *conflictingStore) Put(ctx context.Context, key string, value []byte, rev int64) (int64, error) {
	c.mu.Lock()
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return 0, kv.ErrConflict
	}
	c.mu.Unlock()
	return c.Store.Put(ctx, key, value, rev)
}

func TestConflictsAreRetried(t *testing.T) {
	ctx := context.Background()
	backing := &conflictingStore{Store: kv.NewMemStore(), conflicts: 3}
	clock := newTestClock("2024-01-01")
	s := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC))

	ms, err := s.SaveMoment(ctx, "eventually", nil, false, nil)
	require.NoError(t, err)
	assert.Len(t, ms, 1)
	assert.Equal(t, 1, s.Stats(ctx).StreakDays)
}

func TestExhaustedConflictsBecomeWriteFailure(t *testing.T) {
	backing := &conflictingStore{Store: kv.NewMemStore(), conflicts: 100}
	clock := newTestClock("2024-01-01")
	s := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC), WithMaxRetries(2))

	_, err := s.SaveMoment(context.Background(), "never", nil, false, nil)
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, kv.ErrConflict)
}

func TestConcurrentWritersFromSeparateStores(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenDBConnection(db.MemoryDSN, false, "NORMAL")
	require.NoError(t, err)
	require.NoError(t, db.InitializeSchema(conn, db.TargetSchemaVersion))
	backing := kv.NewSQLiteStore(conn)
	defer backing.Close()

	clock := newTestClock("2024-01-01")
	first := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC), WithMaxRetries(200))
	second := NewStore(backing, WithClock(clock.Now), WithLocation(time.UTC), WithMaxRetries(200))

	const perStore = 10
	var wg sync.WaitGroup
	for _, s := range []*Store{first, second} {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(s *Store) {
				defer wg.Done()
				_, err := s.SaveMoment(ctx, "concurrent", nil, false, nil)
				assert.NoError(t, err)
			}(s)
		}
	}
	wg.Wait()

	ms := first.ListMoments(ctx)
	assert.Len(t, ms, 2*perStore)
	ids := make(map[string]bool)
	for _, m := range ms {
		ids[m.ID] = true
	}
	assert.Len(t, ids, 2*perStore)
	assert.Equal(t, 1, second.Stats(ctx).StreakDays)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s, backing := newTestStore(t, newTestClock("2024-01-01"))
	mustSave(t, s, "x")
	require.NoError(t, s.SaveProfile(ctx, DefaultProfile()))
	_, err := s.SendSunshine(ctx, "m1")
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	for _, key := range []string{MomentsKey, StatsKey, ProfileKey} {
		_, err := backing.Get(ctx, key)
		assert.ErrorIs(t, err, kv.ErrNotFound, key)
	}
	assert.Equal(t, UserStats{}, s.Stats(ctx))
	_, ok := s.Profile(ctx)
	assert.False(t, ok)
	for _, m := range s.ListPublicMoments(ctx) {
		if m.ID == "m1" {
			assert.Equal(t, DefaultSamples[0].SunshineCount, m.SunshineCount)
		}
	}
}
