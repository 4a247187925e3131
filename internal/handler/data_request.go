package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/model"
	"github.com/AleksYogi/proptech-ai/internal/store"
)

type exportedData struct {
	ConsentLogs []model.ConsentLogEntry `json:"consentLogs"`
}

type exportResponse struct {
	Message string       `json:"message"`
	Data    exportedData `json:"data"`
	Success bool         `json:"success"`
}

type deletionResponse struct {
	Message        string `json:"message"`
	DeletedRecords int    `json:"deletedRecords"`
	Success        bool   `json:"success"`
}

// DataRequest handles POST /api/data-request: export or erasure of a
// subject's consent records.
func (h *Handler) DataRequest(w http.ResponseWriter, r *http.Request) {
	var payload model.DataRequest
	if !h.decode(w, r, &payload) || !h.valid(w, r, payload) {
		return
	}

	f := store.Filter{Email: payload.Email, Phone: payload.Phone}
	log := h.log.With(
		zap.String("email", f.Email),
		zap.String("phone", f.Phone),
		zap.String("request_type", payload.RequestType))
	if payload.Reason != "" {
		log = log.With(zap.String("reason", payload.Reason))
	}

	switch payload.RequestType {
	case model.RequestTypeExport:
		rows, err := h.store.Select(r.Context(), f)
		if err != nil {
			h.storeFailure(w, "Failed to fetch consent logs", err)
			return
		}
		log.Info("data export completed", zap.Int("records", len(rows)))
		h.writeJSON(w, http.StatusOK, exportResponse{
			Message: "Data export completed",
			Data:    exportedData{ConsentLogs: rows},
			Success: true,
		})

	case model.RequestTypeDeletion:
		n, err := h.store.Delete(r.Context(), f)
		if err != nil {
			h.storeFailure(w, "Failed to delete user data", err)
			return
		}
		log.Info("data deletion completed", zap.Int("deleted_records", n))
		h.writeJSON(w, http.StatusOK, deletionResponse{
			Message:        "Data deletion completed",
			DeletedRecords: n,
			Success:        true,
		})

	default:
		log.Warn("invalid request type")
		h.writeJSON(w, http.StatusBadRequest, message{
			Message: "Invalid request type. Must be data-export or data-deletion",
		})
	}
}
