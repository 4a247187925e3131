// Package model defines the payloads accepted by the API and the consent log record.
package model

import "strings"

// Consent is the set of checkboxes a visitor ticks on a form.
type Consent struct {
	PrivacyPolicy bool `json:"privacyPolicy"`
	DataTransfer  bool `json:"dataTransfer"`
}

// LeadSubmission is the body of POST /api/lead.
type LeadSubmission struct {
	Name           string   `json:"name" validate:"notblank"`
	Phone          string   `json:"phone" validate:"notblank"`
	Company        string   `json:"company" validate:"notblank"`
	ConvenientTime string   `json:"convenientTime,omitempty"`
	Consent        *Consent `json:"consent,omitempty"`
}

// Sanitized returns a copy with surrounding whitespace removed from every text field.
func (l LeadSubmission) Sanitized() LeadSubmission {
	out := LeadSubmission{
		Name:           strings.TrimSpace(l.Name),
		Phone:          strings.TrimSpace(l.Phone),
		Company:        strings.TrimSpace(l.Company),
		ConvenientTime: strings.TrimSpace(l.ConvenientTime),
	}
	if l.Consent != nil {
		c := *l.Consent
		out.Consent = &c
	}
	return out
}
