package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
)

const sampleSessions = `
relative: true
users:
  - id: alice
    funds:
      USDC: "10000"
sessions:
  - item_collection: genesis
    coordinator: coordinator
    deposit_asset: USDC
    allocation_start: 0
    allocation_end: 3600
    minting_start: 3600
    minting_end: 7200
    min_price: "2"
    max_supply: 10000
    rollover_option: close
`

func TestParseSessions(t *testing.T) {
	users, configs, err := ParseSessions([]byte(sampleSessions), 1_000)
	if err != nil {
		t.Fatalf("ParseSessions failed: %v", err)
	}

	if len(users) != 1 || users[0].Id != "alice" || users[0].Funds["USDC"] != "10000" {
		t.Fatalf("Unexpected users: %+v", users)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(configs))
	}

	cfg := configs[0]
	if cfg.ItemCollection != "genesis" || cfg.RolloverOption != models.RolloverClose {
		t.Errorf("Unexpected session config: %+v", cfg)
	}
	if cfg.AllocationStart != 1_000 || cfg.MintingEnd != 8_200 {
		t.Errorf("Relative bounds not anchored: start=%d end=%d", cfg.AllocationStart, cfg.MintingEnd)
	}
	if !cfg.MinPrice.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected min price 2, got %s", cfg.MinPrice)
	}
	if cfg.MaxSupply != 10_000 {
		t.Errorf("Expected supply 10000, got %d", cfg.MaxSupply)
	}
}

func TestParseSessions_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing min price": "sessions:\n  - item_collection: genesis\n",
		"bad min price":     "sessions:\n  - min_price: cheap\n",
		"missing user id":   "users:\n  - funds:\n      USDC: \"1\"\n",
		"bad funds":         "users:\n  - id: bob\n    funds:\n      USDC: lots\n",
		"not yaml":          "sessions: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := ParseSessions([]byte(data), 0); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestLoadSessionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.yaml")
	if err := os.WriteFile(path, []byte(sampleSessions), 0o600); err != nil {
		t.Fatalf("Failed to write sessions file: %v", err)
	}

	_, configs, err := LoadSessionsFile(path, 0)
	if err != nil {
		t.Fatalf("LoadSessionsFile failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(configs))
	}

	if _, _, err := LoadSessionsFile(filepath.Join(t.TempDir(), "missing.yaml"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}

type recordingFunder struct {
	refs []string
}

func (f *recordingFunder) Fund(_ context.Context, userId, asset string, amount decimal.Decimal, reference string) error {
	f.refs = append(f.refs, reference)
	return nil
}

func TestSeedUsers(t *testing.T) {
	funder := &recordingFunder{}
	users := []UserSeed{{Id: "alice", Funds: map[string]string{"USDC": "100"}}}

	if err := SeedUsers(context.Background(), funder, users); err != nil {
		t.Fatalf("SeedUsers failed: %v", err)
	}
	if len(funder.refs) != 1 || funder.refs[0] != "seed:alice:USDC" {
		t.Errorf("Unexpected references: %v", funder.refs)
	}
}
