package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// Defaults applied to doctor profiles when registration omits them.
const (
	defaultSpecialization = "General Physician"
	defaultLicenseNumber  = "Not provided"
	defaultEducation      = "Not provided"
	defaultPhone          = "Not provided"
)

// Handler handles HTTP requests for accounts and sessions.
type Handler struct {
	users     Repository
	doctors   directory.DoctorRepository
	jwtSecret string
	logger    *logging.Logger
}

// NewHandler creates a new identity handler.
func NewHandler(users Repository, doctors directory.DoctorRepository, jwtSecret string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{users: users, doctors: doctors, jwtSecret: jwtSecret, logger: logger}
}

type sessionResponse struct {
	Token         string            `json:"token"`
	User          *User             `json:"user"`
	DoctorProfile *directory.Doctor `json:"doctorProfile,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user := &User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, ErrEmailTaken.Error())
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	var profile *directory.Doctor
	if user.Role == auth.RoleDoctor && h.doctors != nil {
		profile = h.doctorProfileFor(user, req)
		if err := h.doctors.Create(r.Context(), profile); err != nil {
			// The account exists without a profile; doctors can be re-linked
			// out of band, so registration still succeeds.
			h.logger.Error("failed to create doctor profile", "error", err, "user_id", user.ID)
			profile = nil
		}
	}

	token, err := auth.IssueToken(user.ID, user.Role, h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user, DoctorProfile: profile})
}

func (h *Handler) doctorProfileFor(user *User, req RegisterRequest) *directory.Doctor {
	profile := &directory.Doctor{
		UserID:          user.ID,
		Name:            user.Name,
		Specialization:  req.Specialization,
		ClinicID:        req.ClinicID,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.Experience,
		Education:       req.Education,
		Phone:           req.Phone,
		IsActive:        true,
	}
	if profile.Specialization == "" {
		profile.Specialization = defaultSpecialization
	}
	if profile.LicenseNumber == "" {
		profile.LicenseNumber = defaultLicenseNumber
	}
	if profile.Education == "" {
		profile.Education = defaultEducation
	}
	if profile.Phone == "" {
		profile.Phone = defaultPhone
	}
	return profile
}

// Login handles POST /api/auth/login. When the request names a role, the
// account must hold that role; the mismatch is reported as bad credentials
// so the endpoint does not leak which emails exist with which roles.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, ErrBadCredentials.Error())
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}
	if req.Role != "" && user.Role != req.Role {
		writeError(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}

	token, err := auth.IssueToken(user.ID, user.Role, h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	resp := sessionResponse{Token: token, User: user}
	if user.Role == auth.RoleDoctor && h.doctors != nil {
		if profile, err := h.doctors.GetByUserID(r.Context(), user.ID); err == nil {
			resp.DoctorProfile = profile
		}
	}

	h.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, resp)
}

// GetProfile handles GET /api/users/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, ErrUserNotFound.Error())
			return
		}
		h.logger.Error("failed to fetch profile", "error", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	resp := sessionResponse{User: user}
	if user.Role == auth.RoleDoctor && h.doctors != nil {
		if profile, err := h.doctors.GetByUserID(r.Context(), user.ID); err == nil {
			resp.DoctorProfile = profile
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile handles PUT /api/users/profile. A password change requires the
// current password; name and email changes do not.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, ErrUserNotFound.Error())
			return
		}
		h.logger.Error("failed to fetch user", "error", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		if existing, err := h.users.GetByEmail(r.Context(), email); err == nil && existing.ID != user.ID {
			writeError(w, http.StatusBadRequest, ErrEmailTaken.Error())
			return
		}
		user.Email = email
	}
	if req.NewPassword != "" {
		if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
		user.PasswordHash = hash
	}

	if err := h.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, ErrEmailTaken.Error())
			return
		}
		h.logger.Error("failed to update user", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.logger.Info("profile updated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, sessionResponse{User: user})
}

// DeleteAccount handles DELETE /api/users/profile. Deleting a doctor account also
// removes the linked practitioner profile.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if id.Role == auth.RoleDoctor && h.doctors != nil {
		if err := h.doctors.DeleteByUserID(r.Context(), id.UserID); err != nil &&
			!errors.Is(err, directory.ErrDoctorNotFound) {
			h.logger.Error("failed to delete doctor profile", "error", err, "user_id", id.UserID)
			writeError(w, http.StatusInternalServerError, "failed to delete account")
			return
		}
	}

	if err := h.users.Delete(r.Context(), id.UserID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, ErrUserNotFound.Error())
			return
		}
		h.logger.Error("failed to delete user", "error", err, "user_id", id.UserID)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	h.logger.Info("account deleted", "user_id", id.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
