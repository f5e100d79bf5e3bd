package billing

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLTierSource loads the tier catalog from a YAML file.
//
// File format:
//
//	tiers:
//	  - id: tier-pro
//	    name: Pro
//	    description: For growing teams
//	    trial_days: 14
//	    prices:
//	      monthly: pri_01monthly
//	      yearly: pri_01yearly
//	    one_time_price: pri_01lifetime
type YAMLTierSource struct {
	path string
}

// NewYAMLTierSource creates a tier source reading from the given path.
// The file is read on every Load call so a service restart picks up
// catalog changes.
func NewYAMLTierSource(path string) *YAMLTierSource {
	return &YAMLTierSource{path: path}
}

type tierCatalogYAML struct {
	Tiers []tierYAML `yaml:"tiers"`
}

type tierYAML struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	TrialDays    int               `yaml:"trial_days"`
	Prices       map[string]string `yaml:"prices"`
	OneTimePrice string            `yaml:"one_time_price"`
}

func (s *YAMLTierSource) Load(_ context.Context) (map[string]Tier, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	var catalog tierCatalogYAML
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	tiers := make(map[string]Tier, len(catalog.Tiers))
	for _, t := range catalog.Tiers {
		tier := Tier{
			ID:             t.ID,
			Name:           t.Name,
			Description:    t.Description,
			TrialDays:      t.TrialDays,
			OneTimePriceID: t.OneTimePrice,
		}
		if len(t.Prices) > 0 {
			tier.PriceIDs = make(map[BillingCycle]string, len(t.Prices))
			for cycle, priceID := range t.Prices {
				tier.PriceIDs[BillingCycle(cycle)] = priceID
			}
		}
		tiers[t.ID] = tier
	}

	return tiers, nil
}
