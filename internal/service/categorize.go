package service

import (
	"strings"

	"github.com/tamio/tamio-backend/internal/domain"
)

// categoryPatterns maps name keywords to expense categories, checked in
// order so more specific terms win.
var categoryPatterns = []struct {
	keywords []string
	category domain.ExpenseCategory
}{
	{[]string{"payroll", "salary", "salaries", "wages", "staff"}, domain.CategoryPayroll},
	{[]string{"rent", "lease", "office space", "coworking"}, domain.CategoryRent},
	{[]string{"contractor", "freelance", "consultant", "agency"}, domain.CategoryContractors},
	{[]string{"software", "saas", "subscription", "license", "hosting", "cloud"}, domain.CategorySoftware},
	{[]string{"marketing", "advertising", "ads", "sponsorship", "seo"}, domain.CategoryMarketing},
	{[]string{"utility", "utilities", "electric", "internet", "phone", "water"}, domain.CategoryUtilities},
	{[]string{"insurance", "liability", "coverage"}, domain.CategoryInsurance},
	{[]string{"tax", "taxes", "vat", "gst", "irs"}, domain.CategoryTaxes},
}

// CategorizeExpense guesses the expense category from a free-form name.
// Unrecognized names fall into the other bucket.
func CategorizeExpense(name string) domain.ExpenseCategory {
	lower := strings.ToLower(name)
	for _, p := range categoryPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.category
			}
		}
	}
	return domain.CategoryOther
}
