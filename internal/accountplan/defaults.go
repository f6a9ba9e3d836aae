package accountplan

import "github.com/tallied-dev/tallied/internal/model"

// Statutory line tags recognized by the tax engine.
const (
	TaxLineSales       = "sales"
	TaxLineECSales     = "ec-sales"
	TaxLinePurchases   = "purchases"
	TaxLineECPurchases = "ec-purchases"
)

// DefaultChart returns the default UK small-business chart of accounts.
func DefaultChart() []model.Account {
	return []model.Account{
		{Code: "1010", Name: "Business Current Account", Type: model.AccountTypeAsset, Description: "Primary bank account"},
		{Code: "1020", Name: "Business Savings", Type: model.AccountTypeAsset, Description: "Savings account"},
		{Code: "1100", Name: "Trade Debtors", Type: model.AccountTypeAsset, Description: "Amounts owed by customers"},
		{Code: "2010", Name: "Trade Creditors", Type: model.AccountTypeLiability, Description: "Amounts owed to suppliers"},
		{Code: "2200", Name: "VAT Control", Type: model.AccountTypeLiability, Description: "VAT owed to or from HMRC"},
		{Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity},
		{Code: "4010", Name: "Sales", Type: model.AccountTypeIncome, TaxLine: TaxLineSales},
		{Code: "4020", Name: "EC Sales", Type: model.AccountTypeIncome, TaxLine: TaxLineECSales, Description: "Goods supplied to EC member states"},
		{Code: "5010", Name: "Purchases", Type: model.AccountTypeExpense, TaxLine: TaxLinePurchases},
		{Code: "5020", Name: "EC Acquisitions", Type: model.AccountTypeExpense, TaxLine: TaxLineECPurchases, Description: "Goods acquired from EC member states"},
		{Code: "6010", Name: "Salaries", Type: model.AccountTypeExpense, TaxLine: TaxLinePurchases},
		{Code: "6020", Name: "Rent & Premises", Type: model.AccountTypeExpense, TaxLine: TaxLinePurchases},
		{Code: "6030", Name: "Professional Fees", Type: model.AccountTypeExpense, TaxLine: TaxLinePurchases, Description: "Legal, accounting, consulting"},
	}
}
