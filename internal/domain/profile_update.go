package domain

// ProfileUpdate is a partial onboarding update. Nil fields are left
// untouched, so the UI can submit one answer at a time.
type ProfileUpdate struct {
	CompanyName  *string `json:"company_name,omitempty"`
	Industry     *string `json:"industry,omitempty"`
	Maturity     *string `json:"maturity,omitempty"`
	Jurisdiction *string `json:"jurisdiction,omitempty"`
	FoundedDate  *string `json:"founded_date,omitempty"`
}

// Apply copies the set fields onto p. Maturity values outside the
// accepted set are ignored rather than rejected, mirroring a select
// input that cannot produce them.
func (u ProfileUpdate) Apply(p *OnboardingProfile) {
	if u.CompanyName != nil {
		p.CompanyName = *u.CompanyName
	}
	if u.Industry != nil {
		p.Industry = *u.Industry
	}
	if u.Maturity != nil && ValidMaturity(*u.Maturity) {
		p.Maturity = Maturity(*u.Maturity)
	}
	if u.Jurisdiction != nil {
		p.Jurisdiction = *u.Jurisdiction
	}
	if u.FoundedDate != nil {
		p.FoundedDate = *u.FoundedDate
	}
}
