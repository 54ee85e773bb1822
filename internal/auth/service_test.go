package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	s, err := NewTokenService(Config{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "test"}, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)}
	s := newService(t, clock)

	tok, err := s.Issue(42)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), tok.IssuedAt)
	assert.Equal(t, tok.IssuedAt.Add(time.Hour), tok.ExpiresAt)

	id, err := s.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	s := newService(t, clock)

	tok, err := s.Issue(7)
	require.NoError(t, err)

	clock.t = tok.ExpiresAt.Add(-time.Second)
	_, err = s.Verify(tok.Value)
	require.NoError(t, err, "valid strictly before expiry")

	clock.t = tok.ExpiresAt.Add(time.Second)
	_, err = s.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_BadSignatureIsInvalidEvenWhenExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newService(t, clock)
	other, err := NewTokenService(Config{Secret: []byte("other-secret"), TTL: time.Hour, Issuer: "test"}, WithClock(clock.Now))
	require.NoError(t, err)

	tok, err := other.Issue(7)
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Hour)
	_, err = s.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: now}
	s := newService(t, clock)

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		v, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return v
	}
	exp := jwt.NewNumericDate(now.Add(time.Hour))

	cases := map[string]string{
		"garbage":        "not.a.token",
		"empty":          "",
		"alg none":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{Subject: "1", Issuer: "test", ExpiresAt: exp}),
		"hs512":          sign(jwt.SigningMethodHS512, []byte("test-secret"), jwt.RegisteredClaims{Subject: "1", Issuer: "test", ExpiresAt: exp}),
		"no expiry":      sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{Subject: "1", Issuer: "test"}),
		"wrong issuer":   sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{Subject: "1", Issuer: "evil", ExpiresAt: exp}),
		"non numeric id": sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{Subject: "alice", Issuer: "test", ExpiresAt: exp}),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(tok)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newService(t, clock)
	tok, err := s.Issue(1)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)
	other, err := s.Issue(2)
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other.Value, ".")[1] + "." + parts[2]
	if forged == tok.Value {
		t.Skip("payloads identical")
	}
	_, err = s.Verify(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "")
	_, err := ConfigFromEnv(false)
	assert.ErrorIs(t, err, ErrNoSecret)

	cfg, err := ConfigFromEnv(true)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Secret)
	assert.Equal(t, DefaultTTL, cfg.TTL)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "90m")
	cfg, err = ConfigFromEnv(false)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), cfg.Secret)
	assert.Equal(t, 90*time.Minute, cfg.TTL)

	t.Setenv("TOKEN_TTL", "-1h")
	_, err = ConfigFromEnv(false)
	assert.Error(t, err)
}
