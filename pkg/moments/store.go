// Package moments owns the moment collection, the streak record and the user
// profile, all kept in a kv.Store under three fixed slots.
package moments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/unowned-ai/alive/pkg/kv"
)

const (
	MomentsKey = "alive_moments"
	StatsKey   = "alive_stats"
	ProfileKey = "alive_user"

	DefaultAuthorAlias = "me"

	defaultMaxRetries   = 5
	defaultRetryBackoff = 10 * time.Millisecond
)

var (
	// ErrWriteFailure wraps every error that kept a change from being persisted.
	ErrWriteFailure = errors.New("write failed")
	// ErrStreakNotUpdated is returned by SaveMoment when the moment was stored
	// but the streak could not be advanced. The error also matches ErrWriteFailure.
	ErrStreakNotUpdated = errors.New("moment saved but streak not updated")
)

// Store is the moment store. All methods are safe for concurrent use; writes
// are compare-and-swap loops against the backing kv.Store.
type Store struct {
	kv         kv.Store
	logger     *zap.Logger
	now        func() time.Time
	loc        *time.Location
	alias      string
	samples    []FeedSample
	maxRetries uint64
	backoff    time.Duration

	mu           sync.Mutex
	feedSunshine map[string]int // sunshine given to feed samples this session
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for read anomalies and write failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the calendar used to derive dayStr. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAuthorAlias sets the authorAlias stamped on new moments. Defaults to "me".
func WithAuthorAlias(alias string) Option {
	return func(s *Store) {
		if alias != "" {
			s.alias = alias
		}
	}
}

// WithSamples replaces the moments from others mixed into the public feed.
func WithSamples(samples []FeedSample) Option {
	return func(s *Store) { s.samples = samples }
}

// WithMaxRetries bounds how many times a write is retried after losing a
// revision race to another writer.
func WithMaxRetries(n uint64) Option {
	return func(s *Store) { s.maxRetries = n }
}

// NewStore returns a Store persisting to backing.
func NewStore(backing kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:           backing,
		logger:       zap.NewNop(),
		now:          time.Now,
		loc:          time.Local,
		alias:        DefaultAuthorAlias,
		samples:      DefaultSamples,
		maxRetries:   defaultMaxRetries,
		backoff:      defaultRetryBackoff,
		feedSunshine: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the calendar used for dayStr.
func (s *Store) Location() *time.Location {
	return s.loc
}

// ListMoments returns every stored moment, newest first. Unreadable or
// malformed storage yields an empty slice and a log entry, never an error.
func (s *Store) ListMoments(ctx context.Context) []Moment {
	ms, _ := s.loadMoments(ctx)
	return ms
}

// SaveMoment prepends a new moment and advances the streak for its day.
// Content and images are not validated here; see Validate.
// If the moment was written but the streak update failed, the new collection
// is returned together with an error matching ErrStreakNotUpdated; callers
// must not retry the save in that case.
func (s *Store) SaveMoment(ctx context.Context, content string, tags []string, isPublic bool, images []string) ([]Moment, error) {
	now := s.now()
	moment := Moment{
		Content:       content,
		Tags:          tags,
		Images:        nonEmpty(images),
		CreatedAt:     now.UnixMilli(),
		DayStr:        DayString(now, s.loc),
		IsPublic:      isPublic,
		SunshineCount: 0,
		AuthorAlias:   s.alias,
		IsMine:        true,
	}

	updated, err := s.mutateMoments(ctx, func(current []Moment) ([]Moment, bool) {
		moment.ID = newMomentID(current)
		return append([]Moment{moment}, current...), true
	})
	if err != nil {
		return nil, err
	}

	if err := s.advanceStreak(ctx, moment.DayStr); err != nil {
		return updated, fmt.Errorf("%w: %w", ErrStreakNotUpdated, err)
	}
	return updated, nil
}

// nonEmpty maps an empty image list to nil, which is how it reads back.
func nonEmpty(images []string) []string {
	if len(images) == 0 {
		return nil
	}
	return images
}

// UpdateMoment merges patch into the moment with the given id. An unknown id
// leaves the collection untouched.
func (s *Store) UpdateMoment(ctx context.Context, id string, patch Patch) ([]Moment, error) {
	return s.mutateMoments(ctx, func(current []Moment) ([]Moment, bool) {
		for i := range current {
			if current[i].ID == id {
				patch.apply(&current[i])
				return current, true
			}
		}
		return current, false
	})
}

// DeleteMoment removes the moment with the given id, if any. Streak state is
// never rolled back.
func (s *Store) DeleteMoment(ctx context.Context, id string) ([]Moment, error) {
	return s.mutateMoments(ctx, func(current []Moment) ([]Moment, bool) {
		for i := range current {
			if current[i].ID == id {
				return append(current[:i:i], current[i+1:]...), true
			}
		}
		return current, false
	})
}

// ClearAll erases the moments, stats and profile slots.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Delete(ctx, MomentsKey, StatsKey, ProfileKey); err != nil {
		s.logger.Error("failed to clear slots", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	s.mu.Lock()
	s.feedSunshine = make(map[string]int)
	s.mu.Unlock()
	return nil
}

func newMomentID(existing []Moment) string {
	for {
		id := uuid.NewString()
		taken := false
		for _, m := range existing {
			if m.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (s *Store) loadMoments(ctx context.Context) ([]Moment, int64) {
	var records []momentRecord
	rev, ok := s.loadSlot(ctx, MomentsKey, &records)
	if !ok {
		return []Moment{}, rev
	}
	return fromRecords(records), rev
}

// loadSlot decodes key into dst. It reports false when the slot is absent,
// unreadable or malformed; the revision is still returned for a malformed slot
// so a later write can replace it.
func (s *Store) loadSlot(ctx context.Context, key string, dst any) (int64, bool) {
	item, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("failed to read slot, using defaults", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}
	if err := json.Unmarshal(item.Value, dst); err != nil {
		s.logger.Warn("malformed slot, using defaults", zap.String("key", key), zap.Error(err))
		return item.Revision, false
	}
	return item.Revision, true
}

// storeSlot writes value over the revision that was read.
func (s *Store) storeSlot(ctx context.Context, key string, value any, rev int64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode slot '%s': %w", key, err)
	}
	if _, err := s.kv.Put(ctx, key, data, rev); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	}
	return nil
}

// update runs one read-modify-write cycle per attempt, retrying when another
// writer changed the slot in between.
func (s *Store) update(ctx context.Context, key string, attempt func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(s.maxRetries, retry.NewConstant(s.backoff))
	if err := retry.Do(ctx, b, attempt); err != nil {
		s.logger.Error("failed to persist slot", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: slot %s: %w", ErrWriteFailure, key, err)
	}
	return nil
}

// mutateMoments applies fn to the current collection and persists the result
// when fn reports a change.
func (s *Store) mutateMoments(ctx context.Context, fn func([]Moment) ([]Moment, bool)) ([]Moment, error) {
	var result []Moment
	err := s.update(ctx, MomentsKey, func(ctx context.Context) error {
		current, rev := s.loadMoments(ctx)
		next, changed := fn(current)
		if !changed {
			result = next
			return nil
		}
		if err := s.storeSlot(ctx, MomentsKey, toRecords(next), rev); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
