package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestStoreInterfacesExist(t *testing.T) {
	var _ LedgerStore
	var _ ReputationStore
	var _ Store
	var _ ReputationUpdate
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrDuplicateTransaction, ErrConcurrentModification, ErrUserNotFound, ErrNotFound}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("loading user 42: %w", ErrUserNotFound)
	if !errors.Is(wrapped, ErrUserNotFound) {
		t.Errorf("expected wrapped error to match ErrUserNotFound")
	}
}
