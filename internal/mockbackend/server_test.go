package mockbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec.Code, decoded
}

func registerAndLogin(t *testing.T, s *Server, username string) (string, string) {
	t.Helper()

	code, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/register/", "",
		`{"username":"`+username+`","password":"long-enough"}`)
	require.Equal(t, http.StatusCreated, code)

	code, tokens := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/token/", "",
		`{"username":"`+username+`","password":"long-enough"}`)
	require.Equal(t, http.StatusOK, code)
	return tokens["access"].(string), tokens["refresh"].(string)
}

func TestAccessTokenClaims(t *testing.T) {
	config := DefaultConfig()
	config.AccessTTL = time.Minute
	s := New(config)

	access, refresh := registerAndLogin(t, s, "alice")
	assert.NotEmpty(t, refresh)

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(access, claims, func(*jwt.Token) (interface{}, error) {
		return config.Secret, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "access", claims.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := New(DefaultConfig())

	code, body := doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication credentials were not provided.", body["detail"])

	code, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestExpiredAccessToken(t *testing.T) {
	config := DefaultConfig()
	config.AccessTTL = time.Millisecond
	s := New(config)
	access, _ := registerAndLogin(t, s, "alice")

	time.Sleep(1100 * time.Millisecond)

	code, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", access, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestExpireAccessTokensKeepsRefreshWorking(t *testing.T) {
	s := New(DefaultConfig())
	access, refresh := registerAndLogin(t, s, "alice")

	s.ExpireAccessTokens()

	code, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", access, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, tokens := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	_, rotated := tokens["refresh"]
	assert.False(t, rotated)
	assert.Equal(t, 1, s.RefreshCalls())

	code, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", tokens["access"].(string), "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRotatingRefreshTokensAreSingleUse(t *testing.T) {
	config := DefaultConfig()
	config.RotateRefresh = true
	s := New(config)
	_, refresh := registerAndLogin(t, s, "alice")

	code, tokens := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	next, ok := tokens["refresh"].(string)
	require.True(t, ok)
	assert.NotEqual(t, refresh, next)

	code, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+next+`"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestRefreshFailureAndHook(t *testing.T) {
	s := New(DefaultConfig())
	_, refresh := registerAndLogin(t, s, "alice")

	hooked := 0
	s.SetRefreshHook(func() { hooked++ })
	s.SetRefreshFailure(true)

	code, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+refresh+`"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 1, hooked)

	s.SetRefreshFailure(false)
	s.SetRefreshHook(nil)
	code, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/refresh/", "", `{"refresh":"`+refresh+`"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, hooked)
	assert.Equal(t, 2, s.RefreshCalls())
}

func TestRegisterValidation(t *testing.T) {
	s := New(DefaultConfig())

	code, body := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/register/", "", `{"email":"bad","password":"short"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []interface{}{"This field is required."}, body["username"])
	assert.Equal(t, []interface{}{"Enter a valid email address."}, body["email"])
	assert.Equal(t, []interface{}{"Ensure this field has at least 8 characters."}, body["password"])
}

func TestMalformedBody(t *testing.T) {
	s := New(DefaultConfig())

	code, body := doJSON(t, s.Handler(), http.MethodPost, "/api/auth/jwt/token/", "", `{not json`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["detail"], "JSON parse error")
}

func TestProductsEnvelope(t *testing.T) {
	config := DefaultConfig()
	config.Paginate = true
	s := New(config)

	code, body := doJSON(t, s.Handler(), http.MethodGet, "/api/products/", "", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["count"])
	results := body["results"].([]interface{})
	require.Len(t, results, 3)
	assert.Equal(t, "499.00", results[0].(map[string]interface{})["price"])
}

func TestCartIsPerUser(t *testing.T) {
	s := New(DefaultConfig())
	alice, _ := registerAndLogin(t, s, "alice")
	bob, _ := registerAndLogin(t, s, "bob")

	code, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/cart/", alice, `{"product_id":2,"quantity":1}`)
	require.Equal(t, http.StatusCreated, code)

	_, aliceCart := doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", alice, "")
	_, bobCart := doJSON(t, s.Handler(), http.MethodGet, "/api/cart/", bob, "")

	assert.Equal(t, "2499.00", aliceCart["total_amount"])
	assert.Equal(t, "0.00", bobCart["total_amount"])
	assert.Empty(t, bobCart["items"])
}

func TestCartQuantityValidation(t *testing.T) {
	s := New(DefaultConfig())
	access, _ := registerAndLogin(t, s, "alice")

	code, body := doJSON(t, s.Handler(), http.MethodPost, "/api/cart/", access, `{"product_id":1,"quantity":0}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "quantity")
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(DefaultConfig())
	registerAndLogin(t, s, "alice")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_mock_tokens_issued_total{type="access"} 1`)
	assert.Contains(t, rec.Body.String(), `storefront_mock_tokens_issued_total{type="refresh"} 1`)
	assert.Contains(t, rec.Body.String(), "storefront_mock_requests_total")
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", formatCents(0))
	assert.Equal(t, "4.05", formatCents(405))
	assert.Equal(t, "1599.50", formatCents(159950))
}
