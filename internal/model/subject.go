package model

// Data request types accepted by POST /api/data-request.
const (
	RequestTypeExport   = "data-export"
	RequestTypeDeletion = "data-deletion"
)

// WithdrawalRequest is the body of POST /api/consent-withdraw.
type WithdrawalRequest struct {
	Email            string `json:"email,omitempty" validate:"required_without=Phone"`
	Phone            string `json:"phone,omitempty"`
	WithdrawalReason string `json:"withdrawalReason,omitempty"`
}

// DataRequest is the body of POST /api/data-request.
type DataRequest struct {
	Email       string `json:"email,omitempty" validate:"required_without=Phone"`
	Phone       string `json:"phone,omitempty"`
	RequestType string `json:"requestType" validate:"required"`
	Reason      string `json:"reason,omitempty"`
}
