package billing

import (
	"context"
	"errors"
	"fmt"
)

// Tier describes a purchasable plan. Price IDs map to the billing
// provider's catalog so checkout and webhook processing can resolve
// tiers without extra lookups.
type Tier struct {
	ID          string
	Name        string
	Description string
	// PriceIDs holds the provider price ID per billing cycle for
	// subscription tiers.
	PriceIDs map[BillingCycle]string
	// OneTimePriceID is the provider price ID for one-time purchase of
	// this tier, empty if the tier is subscription-only.
	OneTimePriceID string
	TrialDays      int
}

// PriceFor resolves the provider price ID for a payment mode and cycle.
func (t Tier) PriceFor(mode PaymentMode, cycle BillingCycle) (string, error) {
	if mode == PaymentModeOneTime {
		if t.OneTimePriceID == "" {
			return "", fmt.Errorf("%w: tier %s has no one-time price", ErrTierNotFound, t.ID)
		}
		return t.OneTimePriceID, nil
	}
	priceID, ok := t.PriceIDs[cycle]
	if !ok || priceID == "" {
		return "", fmt.Errorf("%w: tier %s has no %s price", ErrTierNotFound, t.ID, cycle)
	}
	return priceID, nil
}

// TierSource defines how the tier catalog is loaded into the service.
type TierSource interface {
	Load(ctx context.Context) (map[string]Tier, error)
}

// MemoryTierSource serves a fixed catalog, useful for tests and
// hard-coded plan sets.
type MemoryTierSource map[string]Tier

func (s MemoryTierSource) Load(_ context.Context) (map[string]Tier, error) {
	return s, nil
}

// validateTiers catches catalog misconfiguration at service start
// instead of at checkout time.
func validateTiers(tiers map[string]Tier) error {
	for tierID, tier := range tiers {
		if tier.ID != tierID {
			return errors.Join(ErrInvalidTierCatalog,
				fmt.Errorf("tier ID mismatch: map key %s != tier.ID %s", tierID, tier.ID))
		}
		if tier.TrialDays < 0 {
			return errors.Join(ErrInvalidTierCatalog,
				fmt.Errorf("tier %s has negative trial days: %d", tierID, tier.TrialDays))
		}
		if len(tier.PriceIDs) == 0 && tier.OneTimePriceID == "" {
			return errors.Join(ErrInvalidTierCatalog,
				fmt.Errorf("tier %s has no prices", tierID))
		}
		for cycle := range tier.PriceIDs {
			if !cycle.Valid() {
				return errors.Join(ErrInvalidTierCatalog,
					fmt.Errorf("tier %s has invalid billing cycle %q", tierID, cycle))
			}
		}
	}
	return nil
}
