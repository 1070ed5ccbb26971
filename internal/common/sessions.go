package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// UserSeed funds a user's account with the given smallest-unit amounts per asset.
type UserSeed struct {
	Id    string            `yaml:"id"`
	Funds map[string]string `yaml:"funds"`
}

type sessionEntry struct {
	models.SessionConfig `yaml:",inline"`
	MinPrice             string `yaml:"min_price"`
}

// SessionsFile is the seed data read from sessions.yaml.
type SessionsFile struct {
	// Relative makes every session's time bounds offsets in seconds from load time.
	Relative bool           `yaml:"relative"`
	Users    []UserSeed     `yaml:"users"`
	Entries  []sessionEntry `yaml:"sessions"`
}

// LoadSessionsFile reads sessions.yaml and returns the users to seed and the
// session configs to create. now anchors relative time bounds.
func LoadSessionsFile(sessionsFile string, now int64) ([]UserSeed, []models.SessionConfig, error) {
	var sessionsPath string
	if filepath.IsAbs(sessionsFile) {
		sessionsPath = sessionsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		sessionsPath = filepath.Join(wd, sessionsFile)
	}

	data, err := os.ReadFile(sessionsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read %s: %w", sessionsFile, err)
	}
	return ParseSessions(data, now)
}

// ParseSessions decodes sessions.yaml content.
func ParseSessions(data []byte, now int64) ([]UserSeed, []models.SessionConfig, error) {
	var file SessionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("unable to parse sessions file: %w", err)
	}

	for i, user := range file.Users {
		if user.Id == "" {
			return nil, nil, fmt.Errorf("user at index %d missing id", i)
		}
		for asset, amount := range user.Funds {
			if _, err := decimal.NewFromString(amount); err != nil {
				return nil, nil, fmt.Errorf("user %s has invalid %s amount %q: %w", user.Id, asset, amount, err)
			}
		}
	}

	configs := make([]models.SessionConfig, len(file.Entries))
	for i, entry := range file.Entries {
		cfg := entry.SessionConfig
		if entry.MinPrice == "" {
			return nil, nil, fmt.Errorf("session at index %d missing min_price", i)
		}
		minPrice, err := decimal.NewFromString(entry.MinPrice)
		if err != nil {
			return nil, nil, fmt.Errorf("session at index %d has invalid min_price %q: %w", i, entry.MinPrice, err)
		}
		cfg.MinPrice = minPrice

		if file.Relative {
			cfg.AllocationStart += now
			cfg.AllocationEnd += now
			cfg.MintingStart += now
			cfg.MintingEnd += now
		}
		configs[i] = cfg
	}

	return file.Users, configs, nil
}

// Funder credits accounts from outside the sale.
type Funder interface {
	Fund(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) error
}

// SeedUsers funds every seeded user. References are derived from the user and
// asset, so seeding twice credits once.
func SeedUsers(ctx context.Context, funder Funder, users []UserSeed) error {
	for _, user := range users {
		for asset, amount := range user.Funds {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount for %s: %w", user.Id, err)
			}
			reference := fmt.Sprintf("seed:%s:%s", user.Id, asset)
			if err := funder.Fund(ctx, user.Id, asset, value, reference); err != nil {
				return fmt.Errorf("failed to fund %s with %s %s: %w", user.Id, amount, asset, err)
			}
			zap.L().Info("Seeded user funds",
				zap.String("user_id", user.Id),
				zap.String("asset", asset),
				zap.String("amount", amount))
		}
	}
	return nil
}
