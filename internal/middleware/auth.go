// auth.go provides bearer-token authentication. Tokens are HMAC-signed JWTs
// issued for company members; the wallet address in the claims becomes the
// approver identity downstream handlers use.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quality-ledger/quality-ledger/internal/auth"
	"github.com/quality-ledger/quality-ledger/internal/db/models"
)

// Context keys populated by JWTAuthMiddleware
const (
	MemberIDKey      = "member_id"
	WalletAddressKey = "wallet_address"
	MemberRoleKey    = "member_role"
)

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the member identity in the context for handlers.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a bearer token"})
			return
		}

		claims, err := auth.ValidateJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(MemberIDKey, claims.MemberID)
		c.Set(WalletAddressKey, claims.WalletAddress)
		c.Set(MemberRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated member holds one of the
// given roles. QA Managers pass every role check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(MemberRoleKey)
		if role == models.RoleQAManager {
			c.Next()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// WalletFromContext returns the authenticated member's wallet address, if any.
func WalletFromContext(c *gin.Context) (string, bool) {
	wallet := c.GetString(WalletAddressKey)
	return wallet, wallet != ""
}
