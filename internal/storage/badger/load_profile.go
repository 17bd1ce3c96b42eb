package badger

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadProfileFromFile seeds the active user profile from a YAML file
// when the store has none yet. An existing stored profile wins so that
// operator edits survive restarts.
func LoadProfileFromFile(ctx context.Context, profileStorage interfaces.ProfileStorage, path string, logger arbor.ILogger) error {
	if path == "" {
		return nil
	}

	if _, err := profileStorage.GetActiveProfile(ctx); err == nil {
		logger.Debug().Msg("Active profile already present, skipping file seed")
		return nil
	} else if err != interfaces.ErrNotFound {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("Profile file does not exist, skipping")
			return nil
		}
		return fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var profile models.UserProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	if profile.Preferences.WorkType == "" {
		profile.Preferences.WorkType = models.WorkTypeAny
	}

	if err := profileStorage.SaveProfile(ctx, &profile); err != nil {
		return err
	}

	logger.Info().
		Str("path", path).
		Int("skills", len(profile.Skills)).
		Msg("User profile seeded from file")
	return nil
}
