package formance

import (
	"errors"
	"math/big"
	"testing"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"USDC", "USDC/6"},
		{"BTC", "BTC/8"},
		{"ETH", "ETH/18"},
		{"UNKNOWN", "UNKNOWN/6"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USDC/6", "USDC"},
		{"BTC/8", "BTC"},
		{"ETH/18", "ETH"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAmountRendering(t *testing.T) {
	amount := decimal.NewFromInt(1_500_000)
	if got := smallestUnits(amount); got != "1500000" {
		t.Errorf("smallestUnits = %q, want 1500000", got)
	}
	if got := humanAmount(amount, "USDC"); got != "1.5" {
		t.Errorf("humanAmount(USDC) = %q, want 1.5", got)
	}
	if got := humanAmount(decimal.NewFromInt(250), "USD"); got != "2.5" {
		t.Errorf("humanAmount(USD) = %q, want 2.5", got)
	}
}

func TestBigIntToDecimal(t *testing.T) {
	result := bigIntToDecimal(big.NewInt(1_000_000))
	if !result.Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("expected 1000000, got %s", result.String())
	}

	if !bigIntToDecimal(nil).IsZero() {
		t.Error("nil should convert to zero")
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"USDC/6": {Input: big.NewInt(500), Output: big.NewInt(120)},
		"BTC/8":  {Input: big.NewInt(10), Output: big.NewInt(0), Balance: big.NewInt(10)},
	}

	if got := volumeBalance(vols, "USDC/6"); got.Int64() != 380 {
		t.Errorf("USDC balance = %s, want 380", got)
	}
	if got := volumeBalance(vols, "BTC/8"); got.Int64() != 10 {
		t.Errorf("BTC balance = %s, want 10", got)
	}
	if got := volumeBalance(vols, "ETH/18"); got != nil {
		t.Errorf("missing asset should be nil, got %s", got)
	}
}

func TestAddress(t *testing.T) {
	s := &Service{escrow: "sales:escrow"}
	if got := s.address("alice"); got != "users:alice" {
		t.Errorf("address(alice) = %q", got)
	}
	if got := s.address("sales:escrow"); got != "sales:escrow" {
		t.Errorf("address(escrow) = %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isInsufficientFundError(errors.New("boom")) {
		t.Error("plain error should not be insufficient fund")
	}
}
