package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// CompanyFile represents a company seed definition in TOML format.
// Format:
//
//	[acme]
//	name = "Acme Corp"
//	career_url = "https://acme.example.com/api/careers"
//	adapter = "paged_api"
//	active = true
type CompanyFile struct {
	Name      string `toml:"name"`
	CareerURL string `toml:"career_url"`
	Adapter   string `toml:"adapter"`
	Active    *bool  `toml:"active"` // nil defaults to true
}

// LoadCompaniesFromFiles loads company definitions from TOML files in the
// specified directory. Existing companies are refreshed by name, except
// the adapter kind, which is immutable after creation.
func LoadCompaniesFromFiles(ctx context.Context, companyStorage interfaces.CompanyStorage, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading companies from files")

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("dir", dirPath).Msg("Companies directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read companies directory")
		return nil // Non-fatal
	}

	loadedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read company file")
			errorCount++
			continue
		}

		// Map of section name to company definition
		var companies map[string]CompanyFile
		if err := toml.Unmarshal(content, &companies); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse company file")
			errorCount++
			continue
		}

		for section, def := range companies {
			name := def.Name
			if name == "" {
				name = section
			}
			kind := models.AdapterKind(def.Adapter)
			if !models.ValidAdapterKind(kind) {
				logger.Warn().
					Str("file", entry.Name()).
					Str("company", name).
					Str("adapter", def.Adapter).
					Msg("Unknown adapter kind, skipping company")
				errorCount++
				continue
			}

			active := true
			if def.Active != nil {
				active = *def.Active
			}

			existing, err := companyStorage.GetCompanyByName(ctx, name)
			if err != nil && err != interfaces.ErrNotFound {
				logger.Warn().Err(err).Str("company", name).Msg("Failed to look up company")
				errorCount++
				continue
			}

			var company *models.Company
			if existing != nil {
				if existing.AdapterKind != kind {
					logger.Warn().
						Str("company", name).
						Str("current", string(existing.AdapterKind)).
						Str("requested", string(kind)).
						Msg("Adapter kind is immutable, keeping current kind")
				}
				existing.CareerURL = def.CareerURL
				existing.Active = active
				company = existing
			} else {
				company = &models.Company{
					ID:          common.NewCompanyID(),
					Name:        name,
					CareerURL:   def.CareerURL,
					AdapterKind: kind,
					Active:      active,
				}
			}

			if err := companyStorage.SaveCompany(ctx, company); err != nil {
				logger.Warn().Err(err).Str("company", name).Msg("Failed to save company")
				errorCount++
				continue
			}
			loadedCount++
		}
	}

	logger.Info().
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Msg("Company definitions loaded")

	return nil
}
