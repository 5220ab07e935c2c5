package recovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// Handler handles HTTP requests for password reset.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new recovery handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RequestReset handles POST /api/auth/forgot-password.
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrUnknownEmail):
			writeError(w, http.StatusNotFound, ErrUnknownEmail.Error())
		case errors.Is(err, ErrDeliveryFailed):
			writeError(w, http.StatusBadRequest, ErrDeliveryFailed.Error())
		default:
			h.logger.Error("failed to issue reset code", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process reset request")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset code sent"})
}

// ConfirmReset handles POST /api/auth/reset-password.
func (h *Handler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Code == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "email, code, and newPassword are required")
		return
	}

	if err := h.service.ConfirmReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrUnknownEmail):
			writeError(w, http.StatusNotFound, ErrUnknownEmail.Error())
		case errors.Is(err, ErrInvalidCode):
			writeError(w, http.StatusBadRequest, ErrInvalidCode.Error())
		case errors.Is(err, ErrCodeExpired):
			writeError(w, http.StatusBadRequest, ErrCodeExpired.Error())
		default:
			h.logger.Error("failed to reset password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reset password")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
