package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestStoreInterfacesExist(t *testing.T) {
	var _ SaleStore
	var _ SaleTx
	var _ AssetLedger
	var _ ItemLedger
	var _ Payout
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrDuplicateTransaction,
		ErrConcurrentModification,
		ErrSessionNotFound,
		ErrInsufficientBalance,
		ErrNotItemOwner,
		ErrCollectionInUse,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("backend failure: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("expected wrapped error to match %v", sentinel)
		}
	}
}
