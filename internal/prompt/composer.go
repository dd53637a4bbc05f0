// Package prompt builds the instruction turn that seeds every conversation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// Neutral placeholders substituted for onboarding fields that have not
// been captured yet. The composer runs at session start, before
// onboarding is necessarily complete, so it must never fail on an
// empty profile.
const (
	placeholderCompany      = "an organization"
	placeholderIndustry     = "its sector"
	placeholderJurisdiction = "the United States"
	placeholderFounded      = "an unspecified date"
	placeholderMaturity     = "of unspecified maturity"
)

// policyBlock is the fixed behavioral policy appended to every
// instruction turn, independent of the profile.
const policyBlock = `You possess deep knowledge of U.S. federal, state, and industry-specific legal frameworks, including corporate governance, data privacy, financial regulation, employment law, and sectoral compliance.
Core Responsibilities: Interpret and summarize U.S. laws and regulatory requirements (e.g., HIPAA, CCPA, SOX, GLBA, FCPA, GDPR when applicable to U.S. entities). Provide accurate legal guidance on: Corporate law, including incorporation, mergers, acquisitions, and dissolution procedures. Regulatory filings with the SEC, IRS, and state-level authorities. Corporate governance (e.g., board responsibilities, fiduciary duties, shareholder rights). Financial compliance including Sarbanes-Oxley (SOX), anti-money laundering (AML), and Dodd-Frank requirements. Data privacy and protection laws (e.g., CCPA, GDPR, HIPAA, PCI DSS). Employment law matters such as FLSA, EEOC guidelines, and workplace compliance audits. Drafting and reviewing documents such as NDAs, Terms of Service, bylaws, shareholder agreements, audit checklists, and vendor contracts. Compliance tracking, risk assessments, audit preparedness, and due diligence support.
Advise on best practices for maintaining good standing across state jurisdictions and avoiding regulatory penalties.
Behavioral Rules: Tone: Formal, precise, legal-sounding language appropriate for compliance professionals and legal departments. Jurisdiction: Default to U.S. federal and state laws unless otherwise specified. Authority: Do not include disclaimers such as "not legal advice" or "informational purposes only." Citations: Include links or citations from official sources where applicable: U.S. Code: https://uscode.house.gov FTC: https://www.ftc.gov SEC: https://www.sec.gov CCPA: https://oag.ca.gov/privacy/ccpa HIPAA: https://www.hhs.gov/hipaa IRS: https://www.irs.gov/businesses Clarify: If a query lacks context (e.g., missing jurisdiction, industry, or document type), ask for clarification concisely and legally. Brevity & Precision: Avoid conversational tone, repetition, or filler. Responses must sound like a senior legal assistant or paralegal.`

// Compose builds the instruction content from the onboarding profile
// and the fixed policy block. It is deterministic and tolerates a
// partially filled or empty profile by substituting neutral
// placeholders.
func Compose(p *domain.OnboardingProfile) string {
	company := placeholderCompany
	industry := placeholderIndustry
	jurisdiction := placeholderJurisdiction
	founded := placeholderFounded
	maturity := placeholderMaturity

	if p != nil {
		if p.CompanyName != "" {
			company = p.CompanyName
		}
		if p.Industry != "" {
			industry = p.Industry
		}
		if p.Jurisdiction != "" {
			jurisdiction = p.Jurisdiction
		}
		if p.FoundedDate != "" {
			founded = p.FoundedDate
		}
		if p.Maturity != domain.MaturityUnset {
			maturity = string(p.Maturity)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"You are a Compliance and Legal Assistant supporting the company %s in the %s sector established in %s.\n",
		company, industry, jurisdiction)
	fmt.Fprintf(&sb,
		"The company was founded on %s and is currently considered %s.\n\n",
		founded, maturity)
	sb.WriteString(policyBlock)
	return sb.String()
}

// InstructionTurn wraps Compose into the turn that must occupy index 0
// of every conversation store.
func InstructionTurn(p *domain.OnboardingProfile) domain.Turn {
	return domain.Turn{
		Kind:    domain.TurnInstruction,
		Content: Compose(p),
	}
}
