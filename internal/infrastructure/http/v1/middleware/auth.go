package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"batchline/internal/core/apperror"
	appctx "batchline/internal/core/context"
)

const HeaderAPIKey = "X-Api-Key"

// Authenticator resolves request credentials into an operator identity.
// Two credential kinds are accepted: HS256 bearer tokens issued by the
// company identity provider, and named integration keys of the form
// "name:secret" checked against configured bcrypt hashes.
type Authenticator struct {
	secret  []byte
	apiKeys map[string]string
}

// NewAuthenticator creates an authenticator from the JWT signing secret
// and the integration key table (name to bcrypt hash).
func NewAuthenticator(jwtSecret string, apiKeys map[string]string) *Authenticator {
	return &Authenticator{
		secret:  []byte(jwtSecret),
		apiKeys: apiKeys,
	}
}

// Auth middleware authenticates the request and stores the resolved
// operator in the request context. Every mutation stamps its journal
// and audit rows with that identity.
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		op, err := a.resolve(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		ctx := appctx.WithOperator(c.Request.Context(), op)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("operator", op.Name)

		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context) (*appctx.OperatorContext, error) {
	if key := c.GetHeader(HeaderAPIKey); key != "" {
		return a.resolveAPIKey(key)
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, apperror.NewUnauthorized("missing credentials")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, apperror.NewUnauthorized("invalid authorization header format")
	}

	return a.resolveToken(parts[1])
}

// resolveAPIKey checks a "name:secret" integration key against the
// configured bcrypt hash for that name. The name keys the lookup so a
// request costs exactly one bcrypt comparison.
func (a *Authenticator) resolveAPIKey(key string) (*appctx.OperatorContext, error) {
	name, secret, found := strings.Cut(key, ":")
	if !found || name == "" || secret == "" {
		return nil, apperror.NewUnauthorized("invalid api key format")
	}

	hash, ok := a.apiKeys[name]
	if !ok {
		return nil, apperror.NewUnauthorized("unknown api key")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return nil, apperror.NewUnauthorized("invalid api key")
	}

	return &appctx.OperatorContext{
		Subject: name,
		Name:    name,
		Source:  appctx.OperatorSourceAPIKey,
	}, nil
}

// resolveToken validates an HS256 bearer token. The subject claim is
// the stable operator identifier; the optional name claim is the
// display name for journals.
func (a *Authenticator) resolveToken(tokenString string) (*appctx.OperatorContext, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, apperror.NewUnauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.NewUnauthorized("invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, apperror.NewUnauthorized("token has no subject")
	}

	name := subject
	if v, ok := claims["name"].(string); ok && v != "" {
		name = v
	}

	return &appctx.OperatorContext{
		Subject: subject,
		Name:    name,
		Source:  appctx.OperatorSourceJWT,
	}, nil
}
