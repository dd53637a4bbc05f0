package domain

import "errors"

// ErrProfileIncomplete is returned when completion is requested while
// one or more onboarding fields are still empty.
var ErrProfileIncomplete = errors.New("onboarding profile incomplete")

// Maturity describes whether the company is newly formed or established.
type Maturity string

const (
	MaturityUnset       Maturity = ""
	MaturityNew         Maturity = "New"
	MaturityEstablished Maturity = "Established"
)

// ValidMaturity reports whether s is one of the accepted maturity values.
func ValidMaturity(s string) bool {
	switch Maturity(s) {
	case MaturityUnset, MaturityNew, MaturityEstablished:
		return true
	}
	return false
}

// OnboardingProfile captures company metadata used to parameterize the
// assistant's persona. Fields are mutated one at a time during
// onboarding; Completed flips true only via an explicit Complete call.
//
// There is no transition back to collecting once completed — editing the
// profile after completion is deliberately unsupported; starting a new
// session is the only way to re-onboard.
type OnboardingProfile struct {
	CompanyName  string   `json:"company_name"`
	Industry     string   `json:"industry"`
	Maturity     Maturity `json:"maturity"`
	Jurisdiction string   `json:"jurisdiction"`
	// FoundedDate is free-form date text, unvalidated (MM/DD/YYYY suggested).
	FoundedDate string `json:"founded_date"`
	Completed   bool   `json:"completed"`
}

// FieldsFilled reports whether every onboarding field is non-empty.
func (p *OnboardingProfile) FieldsFilled() bool {
	return p.CompanyName != "" &&
		p.Industry != "" &&
		p.Maturity != MaturityUnset &&
		p.Jurisdiction != "" &&
		p.FoundedDate != ""
}

// Complete transitions the profile from collecting to completed. It is
// triggered by explicit user confirmation, never automatically, and
// fails with ErrProfileIncomplete while any field is empty.
func (p *OnboardingProfile) Complete() error {
	if !p.FieldsFilled() {
		return ErrProfileIncomplete
	}
	p.Completed = true
	return nil
}
