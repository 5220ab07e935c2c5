package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new scheduling handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Book handles POST /api/appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.service.Book(r.Context(), id.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, ErrSlotTaken.Error())
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrSlotInPast):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to book appointment", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to book appointment")
		}
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// ListMine handles GET /api/appointments/my.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appts, err := h.service.ListForPatient(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "failed to fetch appointments")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// ListForDoctor handles GET /api/appointments/doctor/{doctorId}. The path
// segment may be either a doctor id or the doctor's user id.
func (h *Handler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorId")
	status := r.URL.Query().Get("status")

	appts, err := h.service.ListForDoctor(r.Context(), doctorID, status)
	if err != nil {
		h.logger.Error("failed to list doctor appointments", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to fetch appointments")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// BookedSlots handles GET /api/appointments/booked-slots/{doctorId}/{date}.
// Unauthenticated so booking pages can render availability.
func (h *Handler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorId")
	date := chi.URLParam(r, "date")

	slots, err := h.service.BookedSlots(r.Context(), doctorID, date)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, ErrInvalidDate.Error())
			return
		}
		h.logger.Error("failed to fetch booked slots", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to fetch booked slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"bookedSlots": slots})
}

// UpdateStatus handles PUT /api/appointments/{id} and
// PUT /api/appointments/{id}/status. Both routes apply the same rule: only
// the doctor on the appointment may change its status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	appointmentID := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), appointmentID, req.Status, id.UserID)
	if err != nil {
		h.writeStatusError(w, err, appointmentID)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel handles PUT /api/appointments/{id}/cancel and
// DELETE /api/appointments/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	appointmentID := chi.URLParam(r, "id")

	if err := h.service.Cancel(r.Context(), appointmentID, id.UserID); err != nil {
		h.writeStatusError(w, err, appointmentID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment cancelled"})
}

// Stats handles GET /api/users/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	stats, err := h.service.StatsForUser(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("failed to compute user stats", "error", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeStatusError(w http.ResponseWriter, err error, appointmentID string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrNotAllowed):
		writeError(w, http.StatusForbidden, ErrNotAllowed.Error())
	case errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, ErrInvalidStatus.Error())
	case errors.Is(err, ErrSlotTaken):
		writeError(w, http.StatusConflict, ErrSlotTaken.Error())
	default:
		h.logger.Error("failed to update appointment", "error", err, "appointment_id", appointmentID)
		writeError(w, http.StatusInternalServerError, "failed to update appointment")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
