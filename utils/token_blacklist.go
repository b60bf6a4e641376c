package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const blacklistKeyPrefix = "community:jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// RevokeToken blacklists a token id until its natural expiry. Redis is preferred;
// without it the entry lives in process memory.
func RevokeToken(jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
			Logger.Warn("revoke token failed", zap.Error(err))
		}
		return
	}
	revokedMu.Lock()
	revoked[jti] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether the token id was revoked before expiry.
func IsTokenRevoked(jti string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKeyPrefix+jti).Result()
		if err != nil {
			// fail open so a Redis outage does not log everybody out
			return false
		}
		return n > 0
	}

	revokedMu.RLock()
	exp, ok := revoked[jti]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		revokedMu.Lock()
		delete(revoked, jti)
		revokedMu.Unlock()
		return false
	}
	return true
}
