package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/http/middleware"
)

const testSecret = "identity-test-secret"

type handlerFixture struct {
	handler *Handler
	users   Repository
	doctors directory.DoctorRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	users := NewInMemoryRepository()
	clinics := directory.NewInMemoryClinicRepository()
	doctors := directory.NewInMemoryDoctorRepository(clinics)
	return &handlerFixture{
		handler: NewHandler(users, doctors, testSecret, nil),
		users:   users,
		doctors: doctors,
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegister_Patient(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Register, map[string]string{
		"name": "Pat Quinn", "email": "pat@example.com", "password": "secret123", "role": "patient",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "pat@example.com", resp.User.Email)
	assert.Nil(t, resp.DoctorProfile)

	// The password hash is never serialized.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_DoctorGetsProfileWithDefaults(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Register, map[string]string{
		"name": "Dana Scott", "email": "dana@example.com", "password": "secret123", "role": "doctor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.DoctorProfile)
	assert.Equal(t, "General Physician", resp.DoctorProfile.Specialization)
	assert.Equal(t, "Not provided", resp.DoctorProfile.LicenseNumber)
	assert.Equal(t, resp.User.ID, resp.DoctorProfile.UserID)
}

func TestRegister_Validation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Register, map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, f.handler.Register, map[string]string{
		"name": "A", "email": "a@example.com", "password": "x", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "admin self-registration must be rejected")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newHandlerFixture(t)
	body := map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "secret123", "role": "patient",
	}

	require.Equal(t, http.StatusCreated, postJSON(t, f.handler.Register, body).Code)
	rec := postJSON(t, f.handler.Register, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestLogin(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, postJSON(t, f.handler.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "secret123", "role": "patient",
	}).Code)

	rec := postJSON(t, f.handler.Login, map[string]string{"email": "pat@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := auth.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, auth.RolePatient, claims.Role)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, postJSON(t, f.handler.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "secret123", "role": "patient",
	}).Code)

	for name, body := range map[string]map[string]string{
		"wrong password": {"email": "pat@example.com", "password": "nope"},
		"unknown email":  {"email": "ghost@example.com", "password": "secret123"},
		"role mismatch":  {"email": "pat@example.com", "password": "secret123", "role": "doctor"},
	} {
		rec := postJSON(t, f.handler.Login, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "invalid credentials", name)
	}
}

func authedRequest(t *testing.T, method string, body any, id middleware.Identity) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/", reader)
	token, err := auth.IssueToken(id.UserID, id.Role, testSecret)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// withIdentity runs the handler behind the auth middleware so the context
// carries a real identity.
func withIdentity(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(testSecret)(h)
}

func registerPatient(t *testing.T, f *handlerFixture) *User {
	t.Helper()
	rec := postJSON(t, f.handler.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "secret123", "role": "patient",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User
}

func TestUpdateProfile_NameAndEmail(t *testing.T) {
	f := newHandlerFixture(t)
	user := registerPatient(t, f)

	req := authedRequest(t, http.MethodPut, map[string]string{
		"name": "Patricia", "email": "patricia@example.com",
	}, middleware.Identity{UserID: user.ID, Role: user.Role})
	rec := httptest.NewRecorder()
	withIdentity(f.handler.UpdateProfile).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Patricia", stored.Name)
	assert.Equal(t, "patricia@example.com", stored.Email)
}

func TestUpdateProfile_PasswordRequiresCurrent(t *testing.T) {
	f := newHandlerFixture(t)
	user := registerPatient(t, f)
	id := middleware.Identity{UserID: user.ID, Role: user.Role}

	req := authedRequest(t, http.MethodPut, map[string]string{"newPassword": "changed123"}, id)
	rec := httptest.NewRecorder()
	withIdentity(f.handler.UpdateProfile).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = authedRequest(t, http.MethodPut, map[string]string{
		"currentPassword": "secret123", "newPassword": "changed123",
	}, id)
	rec = httptest.NewRecorder()
	withIdentity(f.handler.UpdateProfile).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "changed123"))
}

func TestDeleteAccount_RemovesDoctorProfile(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postJSON(t, f.handler.Register, map[string]string{
		"name": "Dana", "email": "dana@example.com", "password": "secret123", "role": "doctor",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := authedRequest(t, http.MethodDelete, nil, middleware.Identity{UserID: resp.User.ID, Role: auth.RoleDoctor})
	rec = httptest.NewRecorder()
	withIdentity(f.handler.DeleteAccount).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := f.users.GetByID(context.Background(), resp.User.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.doctors.GetByUserID(context.Background(), resp.User.ID)
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}
