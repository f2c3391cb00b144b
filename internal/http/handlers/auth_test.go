package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/http/handlers"
	"github.com/geocoder89/agencysite/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()

	require.NoError(t, handlers.RegisterValidators())

	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	users := memory.NewUsersRepo()
	h := handlers.NewAuthHandler(auth.NewService(users, tokens), time.Hour, false)

	r := newTestRouter()
	r.POST("/api/user/register", h.Register)
	r.POST("/api/user/login", h.Login)
	r.POST("/api/user/logout", h.Logout)
	r.POST("/api/user/staff", h.CreateStaff)

	return r, users
}

func TestRegister_SetsCookieAndReturnsToken(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/user/register",
		`{"email":"Ada@Example.com","fullname":"Ada","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

	var body struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	decodeBody(t, w, &body)

	assert.Equal(t, "User registered successfully.", body.Message)
	require.NotEmpty(t, body.Token)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "token cookie not set")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, body.Token, cookie.Value)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	r, _ := newAuthRouter(t)

	doJSON(r, http.MethodPost, "/api/user/register",
		`{"email":"ada@example.com","fullname":"Ada","password":"secret1"}`)

	w := doJSON(r, http.MethodPost, "/api/user/register",
		`{"email":"ADA@example.com","fullname":"Ada","password":"secret1"}`)

	require.Equal(t, http.StatusBadRequest, w.Code, "body=%s", w.Body.String())
	assert.Equal(t, "email_taken", errorCode(t, w))
}

func TestRegister_IgnoresRoleInBody(t *testing.T) {
	r, users := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/user/register",
		`{"email":"mallory@example.com","fullname":"Mallory","password":"secret1","role":"admin"}`)
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

	u, err := users.GetByEmail(context.Background(), "mallory@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, u.Role)
}

func TestRegister_ValidationFailures(t *testing.T) {
	r, _ := newAuthRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"fullname":"Ada","password":"secret1"}`},
		{"bad email", `{"email":"nope","fullname":"Ada","password":"secret1"}`},
		{"short password", `{"email":"ada@example.com","fullname":"Ada","password":"123"}`},
		{"bad json", `{"email":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/user/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body=%s", w.Body.String())
		})
	}
}

func TestRegister_MultibytePasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
		code     string
	}{
		// 40 characters pass the character cap but are 80 bytes
		{"over bcrypt limit", strings.Repeat("é", 40), http.StatusBadRequest, "password_too_long"},
		{"six characters", strings.Repeat("é", 6), http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, users := newAuthRouter(t)

			w := doJSON(r, http.MethodPost, "/api/user/register",
				`{"email":"multi@example.com","fullname":"Multi","password":"`+tt.password+`"}`)
			require.Equal(t, tt.want, w.Code, "body=%s", w.Body.String())

			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				assert.Equal(t, 0, users.Count())
				return
			}
			assert.Equal(t, 1, users.Count())
		})
	}
}

func TestLogin(t *testing.T) {
	r, _ := newAuthRouter(t)

	doJSON(r, http.MethodPost, "/api/user/register",
		`{"email":"ada@example.com","fullname":"Ada","password":"secret1"}`)

	t.Run("success", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/user/login",
			`{"email":"ADA@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())

		var body struct {
			Message string `json:"message"`
			Token   string `json:"token"`
			Role    string `json:"role"`
		}
		decodeBody(t, w, &body)
		assert.Equal(t, "User logged in successfully", body.Message)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, "user", body.Role)
	})

	// Both failure paths must look identical to the caller.
	for name, body := range map[string]string{
		"wrong password": `{"email":"ada@example.com","password":"wrong-one"}`,
		"unknown email":  `{"email":"nobody@example.com","password":"secret1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/user/login", body)
			require.Equal(t, http.StatusBadRequest, w.Code, "body=%s", w.Body.String())

			var env errorEnvelope
			decodeBody(t, w, &env)
			assert.Equal(t, "invalid_credentials", env.Error.Code)
			assert.Equal(t, "Invalid credentials", env.Error.Message)
		})
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/user/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestCreateStaff(t *testing.T) {
	r, users := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/user/staff",
		`{"email":"wes@example.com","fullname":"Wes","password":"secret1","role":"Manager","department":"Ops"}`)
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

	u, err := users.GetByEmail(context.Background(), "wes@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleManager, u.Role)
	assert.Equal(t, "Ops", u.Department)

	w = doJSON(r, http.MethodPost, "/api/user/staff",
		`{"email":"x@example.com","fullname":"X","password":"secret1","role":"overlord"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown role")

	w = doJSON(r, http.MethodPost, "/api/user/staff",
		`{"email":"y@example.com","fullname":"Y","password":"`+strings.Repeat("ü", 40)+`","role":"worker"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "password over bcrypt limit")
}

type profileStub struct {
	handlers.AuthService
	user user.User
	err  error
}

func (p profileStub) Profile(context.Context, string) (user.User, error) {
	return p.user, p.err
}

func TestMe(t *testing.T) {
	tests := []struct {
		name     string
		identity bool
		stub     profileStub
		want     int
	}{
		{"no identity", false, profileStub{}, http.StatusUnauthorized},
		{"found", true, profileStub{user: user.User{ID: "u-1", Email: "a@example.com", Role: user.RoleUser}}, http.StatusOK},
		{"gone", true, profileStub{err: user.ErrNotFound}, http.StatusNotFound},
		{"store down", true, profileStub{err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(tt.stub, time.Hour, false)
			r := newTestRouter()
			if tt.identity {
				r.Use(withIdentity("u-1", user.RoleUser))
			}
			r.GET("/api/user/me", h.Me)

			w := doJSON(r, http.MethodGet, "/api/user/me", "")
			assert.Equal(t, tt.want, w.Code, "body=%s", w.Body.String())
		})
	}
}
