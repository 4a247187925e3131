// Package handler contains HTTP handlers for the lead and consent API.
package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AleksYogi/proptech-ai/internal/notifier"
	"github.com/AleksYogi/proptech-ai/internal/store"
	"github.com/AleksYogi/proptech-ai/internal/validation"
)

const (
	maxBodyBytes = 64 << 10
	unknown      = "UNKNOWN"
)

// Options carries the collaborators of a Handler.
type Options struct {
	Store store.ConsentStore
	// Notifiers are tried in order. Without NotifyAll only the first one is used.
	Notifiers     []notifier.Notifier
	NotifyAll     bool
	PolicyVersion string
}

// Handler serves the API endpoints. It keeps no per-request state.
type Handler struct {
	log           *zap.Logger
	validate      *validator.Validate
	store         store.ConsentStore
	notifiers     []notifier.Notifier
	notifyAll     bool
	policyVersion string
	now           func() time.Time
}

// New creates a new Handler instance.
func New(log *zap.Logger, v *validator.Validate, opts Options) *Handler {
	return &Handler{
		log:           log,
		validate:      v,
		store:         opts.Store,
		notifiers:     opts.Notifiers,
		notifyAll:     opts.NotifyAll,
		policyVersion: opts.PolicyVersion,
		now:           time.Now,
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Route("/api", func(r chi.Router) {
		r.Post("/lead", h.SubmitLead)
		r.Post("/consent-log", h.LogConsent)
		r.Post("/consent-withdraw", h.WithdrawConsent)
		r.Post("/data-request", h.DataRequest)
	})
}

// Healthz is a simple health check endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// MethodNotAllowed answers requests whose path exists with another method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("method not allowed", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	h.writeJSON(w, http.StatusMethodNotAllowed, message{Message: "Method not allowed"})
}

type message struct {
	Message string `json:"message"`
}

type validationFailure struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type upstreamFailure struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Error("failed to decode json", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, message{Message: "Invalid request payload"})
		return false
	}
	return true
}

// valid runs validation, answering 400 with the message list on failure.
func (h *Handler) valid(w http.ResponseWriter, r *http.Request, payload any) bool {
	if errs := validation.Check(h.validate, payload); len(errs) > 0 {
		h.log.Warn("validation failed", zap.String("path", r.URL.Path), zap.Strings("errors", errs))
		h.writeJSON(w, http.StatusBadRequest, validationFailure{Message: "Validation failed", Errors: errs})
		return false
	}
	return true
}

// storeFailure answers 500 for an error from the consent store.
func (h *Handler) storeFailure(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, store.ErrNotConfigured) {
		h.log.Error("consent store is not configured")
		h.writeJSON(w, http.StatusInternalServerError, message{Message: store.ErrNotConfigured.Error()})
		return
	}
	h.log.Error(msg, zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, upstreamFailure{Message: msg, Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("unable to write response stream", zap.Error(err))
	}
}

// clientIP resolves the caller address behind the hosting proxy.
func clientIP(r *http.Request, fallback string) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if fallback != "" {
		return fallback
	}
	return unknown
}

func userAgent(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return unknown
}
