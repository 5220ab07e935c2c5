package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/scheduling"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	users := identity.NewInMemoryRepository()
	clinics := directory.NewInMemoryClinicRepository()
	doctors := directory.NewInMemoryDoctorRepository(clinics)
	appts := scheduling.NewInMemoryRepository()

	// One clinic to book against.
	clinic := &directory.Clinic{Name: "Riverside Health", Location: "Portland"}
	require.NoError(t, clinics.Create(context.Background(), clinic))

	schedService := scheduling.NewService(appts, doctors, nil, nil, nil, nil)

	return New(&Config{
		IdentityHandler:   identity.NewHandler(users, doctors, testSecret, nil),
		DirectoryHandler:  directory.NewHandler(clinics, doctors, nil),
		SchedulingHandler: scheduling.NewHandler(schedService, nil),
		JWTSecret:         testSecret,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestPublicDirectoryRoutes(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/users/profile"},
		{http.MethodGet, "/api/users/stats"},
		{http.MethodPost, "/api/appointments"},
		{http.MethodGet, "/api/appointments/my"},
		{http.MethodPost, "/api/clinics"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestClinicWritesAreAdminOnly(t *testing.T) {
	r := newTestRouter(t)

	token, err := auth.IssueToken("user-1", auth.RolePatient, testSecret)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"name": "Main Street Clinic", "location": "Springfield"})
	req := httptest.NewRequest(http.MethodPost, "/api/clinics", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProfileRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]any{
		"name":     "Pat Quinn",
		"email":    "pat@example.com",
		"password": "secret123",
		"role":     "patient",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pat@example.com")
}

func TestRegisterLoginBookFlow(t *testing.T) {
	r := newTestRouter(t)

	// Register a doctor so there is someone to book with.
	docBody, _ := json.Marshal(map[string]any{
		"name":     "Dana Scott",
		"email":    "dana@example.com",
		"password": "secret123",
		"role":     "doctor",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(docBody)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var docResp struct {
		DoctorProfile struct {
			ID string `json:"id"`
		} `json:"doctorProfile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docResp))
	require.NotEmpty(t, docResp.DoctorProfile.ID)

	// Register and log in a patient.
	patBody, _ := json.Marshal(map[string]any{
		"name":     "Pat Quinn",
		"email":    "pat@example.com",
		"password": "secret123",
		"role":     "patient",
	})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(patBody)))
	require.Equal(t, http.StatusCreated, rec.Code)

	loginBody, _ := json.Marshal(map[string]string{"email": "pat@example.com", "password": "secret123"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(loginBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)

	// Look up the seeded clinic through the public directory.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clinics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var clinicList []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clinicList))
	require.Len(t, clinicList, 1)

	// Booking without a clinic is rejected.
	slot := nextWeekSlot()
	incomplete, _ := json.Marshal(map[string]string{
		"doctor": docResp.DoctorProfile.ID,
		"slot":   slot,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(incomplete))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Book an appointment for next week.
	bookBody, _ := json.Marshal(map[string]string{
		"doctor": docResp.DoctorProfile.ID,
		"clinic": clinicList[0].ID,
		"slot":   slot,
	})
	req = httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(bookBody))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The same slot again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(bookBody))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func nextWeekSlot() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02") + "T10:00:00Z"
}
