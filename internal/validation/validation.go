// Package validation builds the validator used by the HTTP handlers.
package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/AleksYogi/proptech-ai/internal/apperror"
	"github.com/AleksYogi/proptech-ai/internal/model"
)

// New returns a validator with the rules the API payloads rely on.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterStructValidation(leadConsent, model.LeadSubmission{})
	return v
}

// Check validates s and returns the client-facing messages; nil means valid.
func Check(v *validator.Validate, s any) []string {
	if err := v.Struct(s); err != nil {
		return apperror.Messages(err)
	}
	return nil
}

// leadConsent requires an accepted privacy policy on every lead.
func leadConsent(sl validator.StructLevel) {
	lead := sl.Current().Interface().(model.LeadSubmission)
	if lead.Consent == nil || !lead.Consent.PrivacyPolicy {
		sl.ReportError(lead.Consent, "consent", "Consent", "privacypolicy", "")
	}
}
