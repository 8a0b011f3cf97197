package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techstore/internal/auth"
)

const testSecret = "test-secret-key"

func TestIssueAndParseToken(t *testing.T) {
	token, err := auth.IssueToken(testSecret, 42, "customer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.CustomerID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := auth.IssueToken(testSecret, 42, "customer")
	require.NoError(t, err)

	_, err = auth.ParseToken("another-secret", token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := auth.ParseToken(testSecret, "not-a-token")
	require.Error(t, err)

	_, err = auth.ParseToken(testSecret, "")
	require.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := auth.ExtractTokenFromRequest(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Basic abc")
	_, err = auth.ExtractTokenFromRequest(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Bearer my-token")
	token, err := auth.ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "my-token", token)
}

func TestMiddlewarePutsClaimsInContext(t *testing.T) {
	token, err := auth.IssueToken(testSecret, 7, "staff")
	require.NoError(t, err)

	var gotID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = auth.CustomerID(r.Context())
	})

	handler := auth.Middleware(testSecret)(next)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), gotID)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := auth.Middleware(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireStaff(t *testing.T) {
	reached := false
	chain := func(role string) *httptest.ResponseRecorder {
		token, err := auth.IssueToken(testSecret, 7, role)
		require.NoError(t, err)

		handler := auth.Middleware(testSecret)(auth.RequireStaff(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			reached = true
		})))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := chain("customer")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)

	w = chain("staff")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)

	reached = false
	w = chain("admin")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
}
