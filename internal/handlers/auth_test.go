package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medreport/apiserver/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupHandler(t *testing.T) {
	svc := stubAuth{signup: func(req services.SignupRequest) (services.AuthResult, error) {
		switch req.Email {
		case "taken@example.com":
			return services.AuthResult{}, services.ErrDuplicateEmail
		case "":
			return services.AuthResult{}, fmt.Errorf("%w: email is required", services.ErrValidation)
		}
		return services.AuthResult{Token: "tok", UserID: 3}, nil
	}}
	router := newTestRouter(svc, nil, nil)

	rec := do(t, router, jsonRequest(http.MethodPost, "/auth/signup", `{"full_name":"A","email":"a@example.com","password":"pw"}`, ""))
	require.Equal(t, http.StatusCreated, rec.Code)
	var res services.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, services.AuthResult{Token: "tok", UserID: 3}, res)

	rec = do(t, router, jsonRequest(http.MethodPost, "/auth/signup", `{"full_name":"A","email":"taken@example.com","password":"pw"}`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already registered", decodeError(t, rec))

	rec = do(t, router, jsonRequest(http.MethodPost, "/auth/signup", `{"full_name":"A","password":"pw"}`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email is required", decodeError(t, rec))

	rec = do(t, router, jsonRequest(http.MethodPost, "/auth/signup", `{not json`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	svc := stubAuth{login: func(req services.LoginRequest) (services.AuthResult, error) {
		if req.Email == "a@example.com" && req.Password == "pw" {
			return services.AuthResult{Token: "tok", UserID: 1}, nil
		}
		return services.AuthResult{}, services.ErrInvalidCredentials
	}}
	router := newTestRouter(svc, nil, nil)

	rec := do(t, router, jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"pw"}`, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"tok","user_id":1}`, rec.Body.String())

	wrongPassword := do(t, router, jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"nope"}`, ""))
	unknownEmail := do(t, router, jsonRequest(http.MethodPost, "/auth/login", `{"email":"b@example.com","password":"pw"}`, ""))
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, "invalid credentials", decodeError(t, wrongPassword))
}

func TestRequireAuthRejectsBeforeHandler(t *testing.T) {
	files := &stubFiles{}
	router := newTestRouter(nil, files, nil)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"garbage token":  "Bearer not.a.jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/files/list", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := do(t, router, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeError(t, rec))
		})
	}
}

func TestRequireAuthInjectsIdentity(t *testing.T) {
	var seen int
	handler := RequireAuth(testTokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromContext(r.Context())
		require.NoError(t, err)
		seen = id.UserID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+tokenFor(t, 12))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, seen)
}
