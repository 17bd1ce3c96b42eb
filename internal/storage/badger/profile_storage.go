package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// activeProfileID keys the single active profile. Profile history is
// out of scope; updates overwrite in place.
const activeProfileID = "profile_active"

// ProfileStorage implements the ProfileStorage interface for Badger
type ProfileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProfileStorage creates a new ProfileStorage instance
func NewProfileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ProfileStorage {
	return &ProfileStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ProfileStorage) GetActiveProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.Store().Get(activeProfileID, &profile); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (s *ProfileStorage) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.ID = activeProfileID
	profile.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(profile.ID, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
