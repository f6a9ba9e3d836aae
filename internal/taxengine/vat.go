package taxengine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tallied-dev/tallied/internal/model"
)

// VAT return line identifiers, boxes 1 through 9 of the authority's
// scheme in declaration order.
const (
	LineVATDueSales        = "vatDueSales"
	LineVATDueAcquisitions = "vatDueAcquisitions"
	LineTotalVATDue        = "totalVatDue"
	LineVATReclaimed       = "vatReclaimedCurrPeriod"
	LineNetVATDue          = "netVatDue"
	LineSalesExVAT         = "totalValueSalesExVAT"
	LinePurchasesExVAT     = "totalValuePurchasesExVAT"
	LineGoodsSuppliedExVAT = "totalValueGoodsSuppliedExVAT"
	LineAcquisitionsExVAT  = "totalAcquisitionsExVAT"
)

// ComputeVAT produces the 9-box VAT return for a closed period. Movements
// are aggregated in minor units per statutory category; the rate is
// applied and rounded half-up per line, never on intermediate sums. Boxes
// 6-9 are reported in whole major units per the authority's scheme.
func (e *Engine) ComputeVAT(periodKey string) (model.TaxReturn, error) {
	period, err := e.eligiblePeriod(periodKey)
	if err != nil {
		return model.TaxReturn{}, err
	}
	if period.Kind != model.TaxKindVAT {
		return model.TaxReturn{}, fmt.Errorf("taxengine: period %s is %s, not VAT", periodKey, period.Kind)
	}

	txns := e.ledger.PostedInRange(period.Start, period.End)

	var sales, ecSales, purchases, ecPurchases int64
	seen := make(map[string]model.Account)
	for _, tx := range txns {
		for _, p := range tx.Postings {
			if _, ok := seen[p.AccountCode]; ok {
				continue
			}
			acct, err := e.plan.Get(p.AccountCode)
			if err != nil {
				return model.TaxReturn{}, fmt.Errorf("resolving account %s: %w", p.AccountCode, err)
			}
			seen[p.AccountCode] = acct
		}
	}
	for _, acct := range seen {
		category, mapped := e.cfg.LineMap[acct.TaxLine]
		if !mapped {
			continue
		}
		net := netMovement(acct, txns)
		switch category {
		case CategorySales:
			sales += net
		case CategoryECSales:
			ecSales += net
		case CategoryPurchases:
			purchases += net
		case CategoryECPurchases:
			ecPurchases += net
		}
	}

	rate := e.cfg.VATRate

	// Boxes 1, 2 and 4 are rate-applied and rounded half-up to the minor
	// unit per line. EC sales are zero-rated; EC acquisition VAT is both
	// due (box 2) and reclaimable (box 4).
	box1 := pounds(sales).Mul(rate).Round(2)
	box2 := pounds(ecPurchases).Mul(rate).Round(2)
	box3 := box1.Add(box2)
	box4 := pounds(purchases + ecPurchases).Mul(rate).Round(2)
	box5 := box3.Sub(box4).Abs()

	lines := map[string]decimal.Decimal{
		LineVATDueSales:        box1,
		LineVATDueAcquisitions: box2,
		LineTotalVATDue:        box3,
		LineVATReclaimed:       box4,
		LineNetVATDue:          box5,
		LineSalesExVAT:         pounds(sales + ecSales).Round(0),
		LinePurchasesExVAT:     pounds(purchases + ecPurchases).Round(0),
		LineGoodsSuppliedExVAT: pounds(ecSales).Round(0),
		LineAcquisitionsExVAT:  pounds(ecPurchases).Round(0),
	}

	return model.TaxReturn{
		PeriodKey:     period.Key,
		Kind:          model.TaxKindVAT,
		Lines:         lines,
		ConfigVersion: e.cfg.Version,
		ComputedAt:    e.now().UTC(),
		Checksum:      e.checksum(period, model.TaxKindVAT, txns),
	}, nil
}
