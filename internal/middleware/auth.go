package middleware

import (
	"net/http"
	"strings"

	"gmcore/internal/apierror"
	"gmcore/internal/model"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ClaimsKey = "claims"

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Session  string `json:"session,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route. Tokens are
// verified against the keyring's current signing key and, during the
// rotation grace period, the previous generation.
func JWTAuth(keyring service.KeyringService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		keys, err := keyring.VerificationKeys(c.Request.Context(), model.KeyToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		var claims *JWTClaims
		for _, key := range keys {
			candidate := &JWTClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, candidate, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(key.Value), nil
			})
			if err == nil && token.Valid {
				claims = candidate
				break
			}
		}
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		if claims.Session != "" {
			c.Set(SessionTokenKey, claims.Session)
		}
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}
