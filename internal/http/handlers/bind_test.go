package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/agencysite/internal/domain/submission"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func newBindRouter[T any](path string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST(path, func(ctx *gin.Context) {
		var req T
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func postBind(t *testing.T, r *gin.Engine, path, body string) bindErrorResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code, "body=%s", w.Body.String())

	var resp bindErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body=%s", w.Body.String())
	return resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	r := newBindRouter[submission.CreateRequest]("/submit")
	resp := postBind(t, r, "/submit", `{"name":"A","email":"a@example.com"}`)

	assert.Equal(t, "invalid_request", resp.Error.Code)

	wantRules := map[string]string{
		"name":    "min",
		"message": "required",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		require.True(t, ok, "missing field error for %q: %+v", field, resp.Error.Details.Fields)
		assert.Equal(t, rule, fieldErr.Rule, "field %q", field)
		assert.NotEmpty(t, fieldErr.Message, "field %q", field)
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	r := newBindRouter[submission.CreateRequest]("/submit")
	resp := postBind(t, r, "/submit", `{"name":"Ada","email":"ada@example.com","message":42}`)

	assert.Equal(t, "invalid_json_type", resp.Error.Details.JSON)
	assert.Equal(t, "message", resp.Error.Details.Field)
	require.NotEmpty(t, resp.Error.Details.Fields)

	fieldErr := resp.Error.Details.Fields[0]
	assert.Equal(t, "message", fieldErr.Field)
	assert.Equal(t, "type", fieldErr.Rule)
	assert.NotEmpty(t, fieldErr.Message)
}

func TestBindJSON_EmptyBody(t *testing.T) {
	r := newBindRouter[submission.CreateRequest]("/submit")
	resp := postBind(t, r, "/submit", "")

	assert.Equal(t, "empty_body", resp.Error.Details.JSON)
}

func TestBindJSON_UnknownRoleUsesRoleRule(t *testing.T) {
	require.NoError(t, handlers.RegisterValidators())

	r := newBindRouter[user.StaffRequest]("/staff")
	resp := postBind(t, r, "/staff", `{"email":"w@example.com","fullname":"Wes","password":"secret1","role":"overlord"}`)

	require.Len(t, resp.Error.Details.Fields, 1)
	f := resp.Error.Details.Fields[0]
	assert.Equal(t, "role", f.Field)
	assert.Equal(t, "role", f.Rule)
}
