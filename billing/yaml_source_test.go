package billing_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/billing"
)

func TestYAMLTierSource_Load(t *testing.T) {
	t.Parallel()

	t.Run("parses full catalog", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tiers.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  - id: tier-basic
    name: Basic
    description: For individuals
    prices:
      monthly: pri_basic_monthly
  - id: tier-pro
    name: Pro
    trial_days: 14
    prices:
      monthly: pri_pro_monthly
      yearly: pri_pro_yearly
    one_time_price: pri_pro_lifetime
`), 0o600))

		tiers, err := billing.NewYAMLTierSource(path).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, tiers, 2)

		pro := tiers["tier-pro"]
		assert.Equal(t, "Pro", pro.Name)
		assert.Equal(t, 14, pro.TrialDays)
		assert.Equal(t, "pri_pro_yearly", pro.PriceIDs[billing.BillingCycleYearly])
		assert.Equal(t, "pri_pro_lifetime", pro.OneTimePriceID)

		basic := tiers["tier-basic"]
		assert.Empty(t, basic.OneTimePriceID)
		assert.Equal(t, "pri_basic_monthly", basic.PriceIDs[billing.BillingCycleMonthly])
	})

	t.Run("missing file is reported", func(t *testing.T) {
		t.Parallel()
		_, err := billing.NewYAMLTierSource("/nonexistent/tiers.yaml").Load(context.Background())
		assert.ErrorIs(t, err, billing.ErrFailedToLoadTiers)
	})

	t.Run("malformed YAML is reported", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tiers.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tiers: [not: closed"), 0o600))

		_, err := billing.NewYAMLTierSource(path).Load(context.Background())
		assert.ErrorIs(t, err, billing.ErrFailedToLoadTiers)
	})
}
