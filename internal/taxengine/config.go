package taxengine

import (
	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/accountplan"
)

// VATCategory is the statutory bucket an account's movements feed.
type VATCategory string

const (
	CategorySales       VATCategory = "sales"
	CategoryECSales     VATCategory = "ec-sales"
	CategoryPurchases   VATCategory = "purchases"
	CategoryECPurchases VATCategory = "ec-purchases"
)

// Band is one income tax band: Rate applies to taxable income up to Limit
// (zero Limit = unbounded top band). Limits are in major units.
type Band struct {
	Name  string
	Limit decimal.Decimal
	Rate  decimal.Decimal
}

// Config is the versioned statutory configuration the engine computes
// with. It is passed in at construction, never ambient, so historical
// recomputation can pin the version in effect when a period was closed.
type Config struct {
	Version string

	// VATRate is the standard rate applied to sales and acquisitions.
	VATRate decimal.Decimal
	// LineMap maps an account's tax-line tag to its VAT category.
	LineMap map[string]VATCategory

	// PersonalAllowance is the tax-free income amount in major units.
	PersonalAllowance decimal.Decimal
	// TaperThreshold is the income above which the allowance tapers away
	// at £1 per £2.
	TaperThreshold decimal.Decimal
	// Bands are the income tax bands over taxable income after allowance,
	// in ascending order.
	Bands []Band
}

// DefaultConfig returns the UK 2022-23 statutory configuration.
func DefaultConfig() Config {
	return Config{
		Version: "uk-2022-23",
		VATRate: decimal.NewFromFloat(0.20),
		LineMap: map[string]VATCategory{
			accountplan.TaxLineSales:       CategorySales,
			accountplan.TaxLineECSales:     CategoryECSales,
			accountplan.TaxLinePurchases:   CategoryPurchases,
			accountplan.TaxLineECPurchases: CategoryECPurchases,
		},
		PersonalAllowance: decimal.NewFromInt(12570),
		TaperThreshold:    decimal.NewFromInt(100000),
		Bands: []Band{
			{Name: "basic", Limit: decimal.NewFromInt(37700), Rate: decimal.NewFromFloat(0.20)},
			{Name: "higher", Limit: decimal.NewFromInt(150000), Rate: decimal.NewFromFloat(0.40)},
			{Name: "additional", Rate: decimal.NewFromFloat(0.45)},
		},
	}
}
