package model

import "time"

// FormTypeLead tags consent records created by the lead capture form.
const FormTypeLead = "lead_form"

// ConsentLogEntry is one row of the consent_logs table.
type ConsentLogEntry struct {
	ID               string     `json:"id,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
	IP               string     `json:"ip"`
	UserAgent        string     `json:"userAgent"`
	FormType         string     `json:"formType"`
	Email            *string    `json:"email"`
	Phone            string     `json:"phone"`
	Consents         Consent    `json:"consents"`
	PolicyVersion    string     `json:"policyVersion"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
	WithdrawalReason *string    `json:"withdrawalReason,omitempty"`
}

// ConsentLogRequest is the body of POST /api/consent-log.
type ConsentLogRequest struct {
	Timestamp     string   `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	IP            string   `json:"ip,omitempty"`
	UserAgent     string   `json:"userAgent"`
	FormType      string   `json:"formType" validate:"required"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Consents      *Consent `json:"consents" validate:"required"`
	PolicyVersion string   `json:"policyVersion" validate:"required"`
}
