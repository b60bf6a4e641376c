package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quietcircle/community/utils"
)

const (
	// ContextAccountIDKey is the key used to store the authenticated account ID in Gin context.
	ContextAccountIDKey = "account_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the account role.
	ContextRoleKey = "role"
	// ContextClaimsKey stores the parsed token claims for logout.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request carries a valid, unrevoked bearer token.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}
		if utils.IsTokenRevoked(claims.ID) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		ctx.Set(ContextAccountIDKey, claims.AccountID)
		ctx.Set(ContextUsernameKey, claims.Subject)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
		return "", false
	}
	return token, true
}

// AccountID returns the authenticated account id, or 0 when the request is anonymous.
func AccountID(ctx *gin.Context) uint {
	if v, ok := ctx.Get(ContextAccountIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Claims returns the parsed token claims set by AuthRequired.
func Claims(ctx *gin.Context) (*utils.Claims, bool) {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	c, ok := v.(*utils.Claims)
	return c, ok
}
