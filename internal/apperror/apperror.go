// Package apperror maps validation failures to the messages returned to API clients.
package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errNameRequired    = errors.New("Имя обязательно")
	errPhoneRequired   = errors.New("Телефон обязателен")
	errCompanyRequired = errors.New("Компания обязательна")
	errConsentRequired = errors.New("Необходимо согласие с политикой обработки персональных данных")
	errTimestamp       = errors.New("Timestamp is required")
	errTimestampFormat = errors.New("Timestamp must be an ISO-8601 datetime")
	errFormType        = errors.New("Form type is required")
	errConsents        = errors.New("Consents data is required")
	errPolicyVersion   = errors.New("Policy version is required")
	errIdentifyUser    = errors.New("Email or phone is required to identify the user")
	errRequestType     = errors.New("Request type is required")
)

var customErrors = map[string]error{
	"LeadSubmission.Name.notblank":             errNameRequired,
	"LeadSubmission.Phone.notblank":            errPhoneRequired,
	"LeadSubmission.Company.notblank":          errCompanyRequired,
	"LeadSubmission.Consent.privacypolicy":     errConsentRequired,
	"ConsentLogRequest.Timestamp.required":     errTimestamp,
	"ConsentLogRequest.Timestamp.datetime":     errTimestampFormat,
	"ConsentLogRequest.FormType.required":      errFormType,
	"ConsentLogRequest.Consents.required":      errConsents,
	"ConsentLogRequest.PolicyVersion.required": errPolicyVersion,
	"WithdrawalRequest.Email.required_without": errIdentifyUser,
	"DataRequest.Email.required_without":       errIdentifyUser,
	"DataRequest.RequestType.required":         errRequestType,
}

// Messages converts validator errors into an ordered list of client-facing messages.
// The order follows the validator's traversal, which is struct field order.
func Messages(err error) []string {
	errList := make([]string, 0)

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		if err != nil {
			errList = append(errList, err.Error())
		}
		return errList
	}

	for _, e := range validationErr {
		key := e.StructNamespace() + "." + e.Tag()

		errMsg := fmt.Sprintf("%s is invalid", e.Field())
		if v, ok := customErrors[key]; ok {
			errMsg = v.Error()
		}
		errList = append(errList, errMsg)
	}
	return errList
}
