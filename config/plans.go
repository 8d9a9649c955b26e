package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed plans.toml
var defaultPlans []byte

// Plan describes a provider subscription tier. Prices are in NPR.
// A limit of -1 means unlimited.
type Plan struct {
	Name               string  `toml:"name" json:"id"`
	DisplayName        string  `toml:"display_name" json:"name"`
	MaxListings        int     `toml:"max_listings" json:"maxListings"`
	MaxPhotos          int     `toml:"max_photos" json:"maxPhotos"`
	IsFeatured         bool    `toml:"is_featured" json:"isFeatured"`
	PlatformFeePercent float64 `toml:"platform_fee_percent" json:"platformFeePercent"`
	MonthlyPrice       int64   `toml:"monthly_price" json:"monthlyPrice"`
	YearlyPrice        int64   `toml:"yearly_price" json:"yearlyPrice"`
}

type PlanCatalog struct {
	DefaultFeePercent float64 `toml:"default_fee_percent"`
	Plans             []Plan  `toml:"plan"`
}

// Find returns the plan with the given name.
func (pc *PlanCatalog) Find(name string) (Plan, bool) {
	for _, p := range pc.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// LoadPlans decodes the catalogue at path, or the built-in one when path is empty.
func LoadPlans(path string) (*PlanCatalog, error) {
	data := defaultPlans
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read plans file: %w", err)
		}
		data = b
	}

	var catalog PlanCatalog
	if _, err := toml.Decode(string(data), &catalog); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	if len(catalog.Plans) == 0 {
		return nil, fmt.Errorf("plans catalogue is empty")
	}
	if catalog.DefaultFeePercent == 0 {
		catalog.DefaultFeePercent = 15
	}
	return &catalog, nil
}
