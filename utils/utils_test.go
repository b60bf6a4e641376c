package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quietcircle/community/config"
)

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{JWTSecret: "test-secret", JWTIssuer: "quietcircle-test"})
	PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestTokenRoundTrip(t *testing.T) {
	token, exp, err := GenerateToken(42, "river", "USER")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), exp, time.Minute)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.AccountID)
	assert.Equal(t, "river", claims.Subject)
	assert.Equal(t, "USER", claims.Role)
	assert.NotEmpty(t, claims.ID)

	other, _, err := GenerateToken(42, "river", "USER")
	require.NoError(t, err)
	otherClaims, err := ParseToken(other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID)
}

func TestParseTokenRejects(t *testing.T) {
	sign := func(c Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    "quietcircle-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(Claims{AccountID: 1, RegisteredClaims: valid}, "other-secret"),
		"zero account": sign(Claims{AccountID: 0, RegisteredClaims: valid}, "test-secret"),
		"wrong issuer": sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "elsewhere", ExpiresAt: valid.ExpiresAt,
		}}, "test-secret"),
		"no expiry": sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: valid.Issuer}}, "test-secret"),
		"expired": sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: valid.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, "test-secret"),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token)
			assert.Error(t, err)
		})
	}
}

func TestRevokeTokenInMemory(t *testing.T) {
	assert.False(t, IsTokenRevoked("jti-1"))

	RevokeToken("jti-1", time.Now().Add(time.Hour))
	assert.True(t, IsTokenRevoked("jti-1"))
	assert.False(t, IsTokenRevoked("jti-2"))

	// already expired tokens are not stored
	RevokeToken("jti-3", time.Now().Add(-time.Second))
	assert.False(t, IsTokenRevoked("jti-3"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret-pass"))
	assert.False(t, CheckPassword(hash, "secret-pasS"))
}

func TestSanitizeText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello world", "hello world"},
		{"<b>bold</b>", "bold"},
		{"<script>alert(1)</script>hi", "hi"},
		{"fish & chips", "fish &amp; chips"},
		{"a < b", "a &lt; b"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"&lt;b&gt;bold&lt;/b&gt;", "bold"},
		{"&amp;lt;i&amp;gt;", "&lt;i&gt;"},
	}
	for _, tc := range cases {
		got := SanitizeText(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.NotContains(t, got, "<", tc.in)
	}
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	require.Nil(t, GetRedis())
	CacheSetJSON("k", map[string]int{"a": 1}, time.Second)
	_, ok := CacheGetBytes("k")
	assert.False(t, ok)
	InvalidateFeed()
	InvalidateComments(7)
	assert.Equal(t, "community:feed:v0:page=1:size=10", FeedCacheKey(1, 10))
}

func TestCaptchaMemoryStore(t *testing.T) {
	id, img, err := GenerateCaptcha()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, img, "data:image/png;base64,")
	assert.False(t, VerifyCaptcha(id, ""))
	assert.False(t, VerifyCaptcha(id, "wrong"))
}

func TestMakeKeyFromID(t *testing.T) {
	assert.Equal(t, "12345", MakeKeyFromID(12345))
}

func TestRollingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
}

func TestListCacheKeys(t *testing.T) {
	assert.Equal(t, "community:feed:v0:page=2:size=10", FeedCacheKey(2, 10))
	assert.Equal(t, "community:comments:7:v0:page=1:size=20", CommentsCacheKey(7, 1, 20))
	assert.Equal(t, "community:feed:version", feedVersionKey())
	assert.Equal(t, "community:comments:7:version", commentsVersionKey(7))
}

func TestListCacheKeysFollowVersion(t *testing.T) {
	// a page loaded before a write is stored under the old version and never read again
	before := feedPageKey(3, 1, 20)
	after := feedPageKey(4, 1, 20)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "community:feed:v4:page=1:size=20", after)

	assert.NotEqual(t, commentsPageKey(7, 0, 1, 20), commentsPageKey(7, 1, 1, 20))
	// version counters are per post
	assert.NotEqual(t, commentsPageKey(7, 1, 1, 20), commentsPageKey(70, 1, 1, 20))
	assert.NotEqual(t, commentsVersionKey(7), commentsVersionKey(70))
}

func TestCacheEmptyKeyIsNotStored(t *testing.T) {
	CacheSetBytes("", []byte("x"), time.Second)
	_, ok := CacheGetBytes("")
	assert.False(t, ok)
}
