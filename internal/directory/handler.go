package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// Handler handles HTTP requests for the clinic and doctor directories.
type Handler struct {
	clinics ClinicRepository
	doctors DoctorRepository
	logger  *logging.Logger
}

// NewHandler creates a new directory handler.
func NewHandler(clinics ClinicRepository, doctors DoctorRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{clinics: clinics, doctors: doctors, logger: logger}
}

// ListClinics handles GET /api/clinics.
func (h *Handler) ListClinics(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.clinics.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list clinics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch clinics")
		return
	}
	writeJSON(w, http.StatusOK, clinics)
}

// GetClinic handles GET /api/clinics/{id}.
func (h *Handler) GetClinic(w http.ResponseWriter, r *http.Request) {
	clinic, err := h.clinics.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, ErrClinicNotFound.Error())
			return
		}
		h.logger.Error("failed to get clinic", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch clinic")
		return
	}
	writeJSON(w, http.StatusOK, clinic)
}

// CreateClinic handles POST /api/clinics.
func (h *Handler) CreateClinic(w http.ResponseWriter, r *http.Request) {
	var req CreateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	clinic := &Clinic{Name: req.Name, Location: req.Location}
	if err := h.clinics.Create(r.Context(), clinic); err != nil {
		if errors.Is(err, ErrClinicExists) {
			writeError(w, http.StatusBadRequest, ErrClinicExists.Error())
			return
		}
		h.logger.Error("failed to create clinic", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add clinic")
		return
	}

	h.logger.Info("clinic created", "id", clinic.ID, "name", clinic.Name)
	writeJSON(w, http.StatusCreated, clinic)
}

// UpdateClinic handles PUT /api/clinics/{id}.
func (h *Handler) UpdateClinic(w http.ResponseWriter, r *http.Request) {
	var req CreateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	clinic := &Clinic{ID: chi.URLParam(r, "id"), Name: req.Name, Location: req.Location}
	if err := h.clinics.Update(r.Context(), clinic); err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, ErrClinicNotFound.Error())
			return
		}
		h.logger.Error("failed to update clinic", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update clinic")
		return
	}
	writeJSON(w, http.StatusOK, clinic)
}

// DeleteClinic handles DELETE /api/clinics/{id}. Existing appointments keep
// their clinic reference for history.
func (h *Handler) DeleteClinic(w http.ResponseWriter, r *http.Request) {
	if err := h.clinics.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			writeError(w, http.StatusNotFound, ErrClinicNotFound.Error())
			return
		}
		h.logger.Error("failed to delete clinic", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete clinic")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "clinic deleted"})
}

// ListDoctors handles GET /api/doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.doctors.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch doctors")
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /api/doctors/{id}.
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.doctors.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			writeError(w, http.StatusNotFound, ErrDoctorNotFound.Error())
			return
		}
		h.logger.Error("failed to get doctor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch doctor")
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// CreateDoctor handles POST /api/doctors (admin only; self-service doctor
// profiles are created at registration).
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var doctor Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if doctor.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.doctors.Create(r.Context(), &doctor); err != nil {
		if errors.Is(err, ErrDoctorExists) {
			writeError(w, http.StatusBadRequest, ErrDoctorExists.Error())
			return
		}
		h.logger.Error("failed to create doctor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add doctor")
		return
	}
	writeJSON(w, http.StatusCreated, &doctor)
}

// UpdateSlots handles PUT /api/doctors/{id}/slots. A doctor may only publish
// slots on their own profile; admins may update anyone's.
func (h *Handler) UpdateSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	doctorID := chi.URLParam(r, "id")
	doctor, err := h.doctors.GetByID(r.Context(), doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			writeError(w, http.StatusNotFound, ErrDoctorNotFound.Error())
			return
		}
		h.logger.Error("failed to load doctor for slot update", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update slots")
		return
	}
	if id.Role != auth.RoleAdmin && doctor.UserID != id.UserID {
		writeError(w, http.StatusForbidden, "not authorized to update this doctor's slots")
		return
	}

	var req UpdateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.doctors.UpdateSlots(r.Context(), doctorID, req.AvailableSlots); err != nil {
		h.logger.Error("failed to update slots", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to update slots")
		return
	}

	h.logger.Info("doctor slots updated", "doctor_id", doctorID, "count", len(req.AvailableSlots))
	writeJSON(w, http.StatusOK, map[string]string{"message": "slots updated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
