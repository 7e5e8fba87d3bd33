package accounts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/EmpoweredVote/EV-Accounts/internal/google"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	SetupRoutes(r, NewHandler(f.svc, zap.NewNop()), SessionInfo{Store: f.store})
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegistrationFlowHTTP(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(t, router, http.MethodPost, "/registration/", `{"email":"h@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeBody(t, rec)
	userID := uint(reg["user_id"].(float64))
	code := reg["confirmation_code"].(string)

	rec = do(t, router, http.MethodPost, "/registration/", `{"email":"h@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"user already exists"}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/authorization/", `{"email":"h@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"account is not activated yet"}`, rec.Body.String())

	confirm := `{"user_id":` + strconv.FormatUint(uint64(userID), 10) + `,"code":"` + code + `"}`
	rec = do(t, router, http.MethodPost, "/confirm/", confirm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conf := decodeBody(t, rec)
	assert.Equal(t, MsgActivated, conf["message"])
	key := conf["key"].(string)

	rec = do(t, router, http.MethodPost, "/confirm/", confirm)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"confirmation code not found"}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/authorization/", `{"email":"h@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"`+key+`"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/me/", "", "Authorization", "Token "+key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeBody(t, rec)
	assert.Equal(t, "h@example.com", me["email"])
	assert.Equal(t, true, me["is_active"])
	assert.Nil(t, me["birthdate"])
	assert.NotContains(t, me, "password")
}

func TestRequestValidationHTTP(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(t, router, http.MethodPost, "/registration/", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	rec = do(t, router, http.MethodPost, "/authorization/", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/confirm/", `{"code":"1234567"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields = decodeBody(t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "user_id")
	assert.Contains(t, fields, "code")

	rec = do(t, router, http.MethodPost, "/confirm/", `{"user_id":"abc","code":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleAuthHTTP(t *testing.T) {
	router, f := newRouter(t)

	rec := do(t, router, http.MethodPost, "/google-auth/", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"token is required"}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/google-auth/", `{"token":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, MsgGoogleLogin, body["message"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "google", user["registration_source"])

	f.google.err = google.ErrRejected
	rec = do(t, router, http.MethodPost, "/google-auth/", `{"token":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid google token"}`, rec.Body.String())
}

func TestJWTEndpointsHTTP(t *testing.T) {
	router, f := newRouter(t)
	activeAccount(t, f, "j@example.com")

	rec := do(t, router, http.MethodPost, "/jwt/", `{"email":"j@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"no active account found with the given credentials"}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/jwt/", `{"email":"j@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decodeBody(t, rec)
	refresh := pair["refresh"].(string)
	access := pair["access"].(string)

	rec = do(t, router, http.MethodPost, "/jwt/refresh/", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["access"])

	rec = do(t, router, http.MethodPost, "/jwt/refresh/", `{"refresh":"`+access+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"token is invalid or expired"}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/jwt/verify/", `{"token":"`+access+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/jwt/verify/", `{"token":"tampered"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeHTTP_Unauthorized(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(t, router, http.MethodGet, "/me/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/me/", "", "Authorization", "Token unknown")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInternalErrorHTTP(t *testing.T) {
	router, f := newRouter(t)
	f.store.failCreateCode = true

	rec := do(t, router, http.MethodPost, "/registration/", `{"email":"e@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
