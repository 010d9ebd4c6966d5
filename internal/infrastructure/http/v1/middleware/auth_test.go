package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appctx "batchline/internal/core/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthRouter(a *Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(), Auth(a))
	r.GET("/whoami", func(c *gin.Context) {
		op := appctx.GetOperator(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"name": op.Name, "subject": op.Subject, "source": string(op.Source)})
	})
	return r
}

func signedToken(t *testing.T, secret, subject, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuth_BearerToken(t *testing.T) {
	r := newAuthRouter(NewAuthenticator(testSecret, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "op-17", "Maria K"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Maria K"`)
	assert.Contains(t, w.Body.String(), `"subject":"op-17"`)
	assert.Contains(t, w.Body.String(), `"source":"jwt"`)
}

func TestAuth_SubjectFallsBackAsName(t *testing.T) {
	r := newAuthRouter(NewAuthenticator(testSecret, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "op-17", ""))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"op-17"`)
}

func TestAuth_RejectsBadTokens(t *testing.T) {
	r := newAuthRouter(NewAuthenticator(testSecret, nil))

	expired := jwt.MapClaims{"sub": "op-17", "exp": time.Now().Add(-time.Hour).Unix()}
	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "op-17"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "wrong secret", header: "Bearer " + signedToken(t, "another-secret-another-secret!!", "op-17", "")},
		{name: "expired", header: "Bearer " + expiredToken},
		{name: "alg none", header: "Bearer " + noneToken},
		{name: "garbage", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuth_APIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	r := newAuthRouter(NewAuthenticator(testSecret, map[string]string{"erp-sync": string(hash)}))

	t.Run("valid key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderAPIKey, "erp-sync:s3cret")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"erp-sync"`)
		assert.Contains(t, w.Body.String(), `"source":"api_key"`)
	})

	rejected := []struct {
		name string
		key  string
	}{
		{name: "wrong secret", key: "erp-sync:wrong"},
		{name: "unknown name", key: "shopfloor:s3cret"},
		{name: "no separator", key: "erp-sync"},
		{name: "empty secret", key: "erp-sync:"},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(HeaderAPIKey, tt.key)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
