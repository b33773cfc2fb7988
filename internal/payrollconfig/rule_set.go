package payrollconfig

// RuleSet is the APPROVED configuration of one company used to calculate a
// payroll run. It is cached as JSON.
type RuleSet struct {
	PayGrades         map[string]PayGrade `json:"pay_grades"`
	TaxRules          []TaxRule           `json:"tax_rules"`
	InsuranceBrackets []InsuranceBracket  `json:"insurance_brackets"`
	Allowances        []Allowance         `json:"allowances"`
}

// PayGrade returns the approved pay grade with the given id.
func (r RuleSet) PayGrade(id string) (PayGrade, bool) {
	pg, ok := r.PayGrades[id]
	return pg, ok
}
