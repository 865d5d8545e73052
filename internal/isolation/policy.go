package isolation

import (
	"os"

	"gopkg.in/yaml.v3"

	dErrors "haven/pkg/domain-errors"
)

// Rule blocks a set of fields originating in SourceContext from appearing in
// data processed under TargetContext. Correctable rules resolve by stripping
// the field; non-correctable ones leave the violation for the caller to act
// on. Exemptible rules may be let through under an active emergency
// exception.
type Rule struct {
	Name          string      `yaml:"name" json:"name"`
	SourceContext ContextType `yaml:"source_context" json:"source_context"`
	TargetContext ContextType `yaml:"target_context" json:"target_context"`
	BlockedFields []string    `yaml:"blocked_fields" json:"blocked_fields"`
	Correctable   bool        `yaml:"correctable" json:"correctable"`
	Exemptible    bool        `yaml:"exemptible" json:"exemptible"`
}

// Policy is the full segregation configuration: which contexts each tier may
// operate in, which tiers may take the crisis bypass, the segregation rules
// themselves, the fields that survive no bypass, and the sensitivity table
// that grades violations. It is loaded once at startup and never mutated.
type Policy struct {
	TierContexts map[SubscriptionTier][]ContextType `yaml:"tier_contexts" json:"tier_contexts"`
	BypassTiers  map[SubscriptionTier]bool          `yaml:"bypass_tiers" json:"bypass_tiers"`
	Rules        []Rule                             `yaml:"rules" json:"rules"`
	// NeverBypass lists fields stripped on the bypass path no matter what.
	// Raw payment instrument primitives never enter a clinical context.
	NeverBypass []string `yaml:"never_bypass" json:"never_bypass"`
	// Sensitivity assigns severity grades to fields. Fields absent from the
	// table grade as low.
	Sensitivity map[string]Severity `yaml:"sensitivity" json:"sensitivity"`
}

// Default returns the built-in segregation policy. Deployments override it
// with a YAML file via FromFile; the built-in set is the floor shipped with
// the app.
func Default() *Policy {
	return &Policy{
		TierContexts: map[SubscriptionTier][]ContextType{
			TierFree:       {ContextTherapeutic, ContextAssessment, ContextCrisis},
			TierPremium:    {ContextTherapeutic, ContextAssessment, ContextCrisis, ContextPayment},
			TierEnterprise: {ContextTherapeutic, ContextAssessment, ContextCrisis, ContextPayment, ContextSystem},
		},
		BypassTiers: map[SubscriptionTier]bool{
			TierFree:       true,
			TierPremium:    true,
			TierEnterprise: true,
		},
		Rules: []Rule{
			{
				Name:          "clinical-scores-out-of-payment",
				SourceContext: ContextAssessment,
				TargetContext: ContextPayment,
				BlockedFields: []string{"phq9_score", "gad7_score", "phq9_answers", "gad7_answers", "severity_band", "crisis_flag", "assessment_id"},
				Correctable:   true,
			},
			{
				// Free-text clinical material inside a payment flow means the
				// calling operation is miswired; stripping is not a fix.
				Name:          "therapy-content-out-of-payment",
				SourceContext: ContextTherapeutic,
				TargetContext: ContextPayment,
				BlockedFields: []string{"session_notes", "therapy_transcript", "diagnosis_code", "medication_list", "journal_entry"},
				Correctable:   false,
			},
			{
				Name:          "payment-instruments-out-of-therapeutic",
				SourceContext: ContextPayment,
				TargetContext: ContextTherapeutic,
				BlockedFields: []string{"card_number", "card_cvv", "card_expiry", "bank_account", "bank_routing"},
				Correctable:   true,
			},
			{
				Name:          "payment-instruments-out-of-assessment",
				SourceContext: ContextPayment,
				TargetContext: ContextAssessment,
				BlockedFields: []string{"card_number", "card_cvv", "card_expiry", "bank_account", "bank_routing"},
				Correctable:   true,
			},
			{
				Name:          "payment-instruments-out-of-crisis",
				SourceContext: ContextPayment,
				TargetContext: ContextCrisis,
				BlockedFields: []string{"card_number", "card_cvv", "card_expiry", "bank_account", "bank_routing"},
				Correctable:   true,
			},
			{
				// A crisis responder or support flow may legitimately need
				// billing contact details under emergency access.
				Name:          "billing-details-out-of-therapeutic",
				SourceContext: ContextPayment,
				TargetContext: ContextTherapeutic,
				BlockedFields: []string{"billing_address", "billing_email", "invoice_id", "payment_history", "subscription_price"},
				Correctable:   true,
				Exemptible:    true,
			},
			{
				Name:          "billing-details-out-of-crisis",
				SourceContext: ContextPayment,
				TargetContext: ContextCrisis,
				BlockedFields: []string{"billing_address", "billing_email", "invoice_id", "payment_history", "subscription_price"},
				Correctable:   true,
				Exemptible:    true,
			},
			{
				Name:          "identity-documents-out-of-therapeutic",
				SourceContext: ContextSystem,
				TargetContext: ContextTherapeutic,
				BlockedFields: []string{"government_id", "ssn", "passport_number"},
				Correctable:   true,
			},
		},
		NeverBypass: []string{"card_number", "card_cvv", "bank_account", "bank_routing"},
		Sensitivity: map[string]Severity{
			// Payment instruments and identity documents.
			"card_number":     SeverityCritical,
			"card_cvv":        SeverityCritical,
			"card_expiry":     SeverityCritical,
			"bank_account":    SeverityCritical,
			"bank_routing":    SeverityCritical,
			"government_id":   SeverityCritical,
			"ssn":             SeverityCritical,
			"passport_number": SeverityCritical,

			// Clinical content grades critical in this product: a leaked
			// score or transcript is a reportable incident, not routine PII.
			"phq9_score":         SeverityCritical,
			"gad7_score":         SeverityCritical,
			"phq9_answers":       SeverityCritical,
			"gad7_answers":       SeverityCritical,
			"crisis_flag":        SeverityCritical,
			"session_notes":      SeverityCritical,
			"therapy_transcript": SeverityCritical,
			"diagnosis_code":     SeverityCritical,
			"medication_list":    SeverityCritical,
			"journal_entry":      SeverityCritical,

			// Contact and billing details.
			"billing_address":    SeverityHigh,
			"billing_email":      SeverityHigh,
			"invoice_id":         SeverityHigh,
			"payment_history":    SeverityHigh,
			"subscription_price": SeverityHigh,
			"severity_band":      SeverityHigh,
			"mood_rating":        SeverityHigh,

			// Generic personal data.
			"assessment_id": SeverityMedium,
			"date_of_birth": SeverityMedium,
		},
	}
}

// FromYAML parses and validates a policy from raw YAML bytes.
func FromYAML(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse isolation policy")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// FromFile reads a policy override from the given path. Callers treat any
// error as fatal at startup; a process must not run with a half-loaded
// segregation policy.
func FromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read isolation policy")
	}
	return FromYAML(data)
}

// Validate checks structural soundness. Every tier needs an explicit context
// allow-list, and every tier must allow the crisis context: crisis workflows
// cannot depend on plan level.
func (p *Policy) Validate() error {
	if len(p.Rules) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "segregation policy has no rules")
	}
	seen := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		if r.Name == "" {
			return dErrors.Newf(dErrors.CodeInvalidInput, "rule %d has no name", i)
		}
		if seen[r.Name] {
			return dErrors.Newf(dErrors.CodeInvalidInput, "duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		if !r.SourceContext.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "rule %q: invalid source context %q", r.Name, r.SourceContext)
		}
		if !r.TargetContext.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "rule %q: invalid target context %q", r.Name, r.TargetContext)
		}
		if r.SourceContext == r.TargetContext {
			return dErrors.Newf(dErrors.CodeInvalidInput, "rule %q: source and target context are both %q", r.Name, r.SourceContext)
		}
		if len(r.BlockedFields) == 0 {
			return dErrors.Newf(dErrors.CodeInvalidInput, "rule %q blocks no fields", r.Name)
		}
		for _, f := range r.BlockedFields {
			if f == "" {
				return dErrors.Newf(dErrors.CodeInvalidInput, "rule %q has an empty blocked field", r.Name)
			}
		}
	}

	for _, tier := range []SubscriptionTier{TierFree, TierPremium, TierEnterprise} {
		contexts, ok := p.TierContexts[tier]
		if !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "tier %q has no context allow-list", tier)
		}
		for _, ct := range contexts {
			if !ct.IsValid() {
				return dErrors.Newf(dErrors.CodeInvalidInput, "tier %q allows invalid context %q", tier, ct)
			}
		}
		if !p.ContextAllowed(tier, ContextCrisis) {
			return dErrors.Newf(dErrors.CodeInvalidInput, "tier %q does not allow the crisis context", tier)
		}
	}
	for tier := range p.TierContexts {
		if !tier.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "unknown tier %q in context allow-lists", tier)
		}
	}
	for tier := range p.BypassTiers {
		if !tier.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "unknown tier %q in bypass permissions", tier)
		}
	}

	for _, f := range p.NeverBypass {
		if f == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "never-bypass list has an empty field")
		}
	}
	for field, sev := range p.Sensitivity {
		if field == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "sensitivity table has an empty field")
		}
		if !sev.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "field %q has invalid severity %q", field, sev)
		}
	}
	return nil
}

// ContextAllowed reports whether the tier may process data under the given
// context type.
func (p *Policy) ContextAllowed(tier SubscriptionTier, ct ContextType) bool {
	for _, allowed := range p.TierContexts[tier] {
		if allowed == ct {
			return true
		}
	}
	return false
}

// BypassAllowed reports whether the tier may take the emergency bypass path.
// Tiers absent from the table are denied.
func (p *Policy) BypassAllowed(tier SubscriptionTier) bool {
	return p.BypassTiers[tier]
}

// SeverityFor grades a field by the sensitivity table, defaulting to low.
func (p *Policy) SeverityFor(field string) Severity {
	if s, ok := p.Sensitivity[field]; ok {
		return s
	}
	return SeverityLow
}
