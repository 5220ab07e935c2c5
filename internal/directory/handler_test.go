package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
)

const testSecret = "directory-test-secret"

func newTestHandler(t *testing.T) (*Handler, *InMemoryClinicRepository, *InMemoryDoctorRepository) {
	t.Helper()
	clinics := NewInMemoryClinicRepository()
	doctors := NewInMemoryDoctorRepository(clinics)
	return NewHandler(clinics, doctors, nil), clinics, doctors
}

func mountSlotRoute(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.With(middleware.RequireAuth(testSecret)).Put("/api/doctors/{id}/slots", h.UpdateSlots)
	return r
}

func TestCreateClinic_Validation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body, _ := json.Marshal(map[string]string{"name": "Main Street Clinic"})
	rec := httptest.NewRecorder()
	h.CreateClinic(rec, httptest.NewRequest(http.MethodPost, "/api/clinics", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateClinic_Duplicate(t *testing.T) {
	h, _, _ := newTestHandler(t)
	body, _ := json.Marshal(map[string]string{"name": "Main Street Clinic", "location": "Springfield"})

	rec := httptest.NewRecorder()
	h.CreateClinic(rec, httptest.NewRequest(http.MethodPost, "/api/clinics", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateClinic(rec, httptest.NewRequest(http.MethodPost, "/api/clinics", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestGetDoctor_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	r := chi.NewRouter()
	r.Get("/api/doctors/{id}", h.GetDoctor)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSlots_OwnershipEnforced(t *testing.T) {
	h, _, doctors := newTestHandler(t)

	doctor := &Doctor{UserID: "user-doc", Name: "Dana Scott"}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	slots := UpdateSlotsRequest{AvailableSlots: []time.Time{
		time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}}
	body, _ := json.Marshal(slots)

	router := mountSlotRoute(h)

	// Another doctor's token is rejected.
	token, err := auth.IssueToken("someone-else", auth.RoleDoctor, testSecret)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/doctors/"+doctor.ID+"/slots", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The owner succeeds.
	token, err = auth.IssueToken("user-doc", auth.RoleDoctor, testSecret)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/doctors/"+doctor.ID+"/slots", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := doctors.GetByID(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.Len(t, stored.AvailableSlots, 1)

	// An admin can update anyone's slots.
	token, err = auth.IssueToken("admin-1", auth.RoleAdmin, testSecret)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/doctors/"+doctor.ID+"/slots", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
