package moments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/unowned-ai/alive/pkg/kv"
)

// DefaultProfile is what a login without explicit details stores.
func DefaultProfile() UserProfile {
	return UserProfile{
		NickName:  "life lover",
		AvatarURL: "https://api.dicebear.com/7.x/notionists/svg?seed=Felix",
	}
}

// Profile returns the stored profile. ok is false when none is stored or the
// slot cannot be decoded.
func (s *Store) Profile(ctx context.Context) (profile UserProfile, ok bool) {
	_, ok = s.loadSlot(ctx, ProfileKey, &profile)
	if !ok {
		return UserProfile{}, false
	}
	return profile, true
}

// SaveProfile replaces the profile slot wholesale.
func (s *Store) SaveProfile(ctx context.Context, profile UserProfile) error {
	return s.update(ctx, ProfileKey, func(ctx context.Context) error {
		rev := s.currentRevision(ctx, ProfileKey)
		return s.storeSlot(ctx, ProfileKey, profile, rev)
	})
}

// ClearProfile erases the profile slot (logout).
func (s *Store) ClearProfile(ctx context.Context) error {
	if err := s.kv.Delete(ctx, ProfileKey); err != nil {
		s.logger.Error("failed to clear profile", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}

func (s *Store) currentRevision(ctx context.Context, key string) int64 {
	item, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("failed to read slot revision", zap.String("key", key), zap.Error(err))
		}
		return 0
	}
	return item.Revision
}
