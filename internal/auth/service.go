package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrNoSecret     = errors.New("JWT_SECRET is required")
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 24 * time.Hour

type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// ConfigFromEnv reads JWT_SECRET, TOKEN_TTL (Go duration) and TOKEN_ISSUER.
// When dev is set and no secret is configured a random one is generated,
// so tokens do not survive a restart.
func ConfigFromEnv(dev bool) (Config, error) {
	cfg := Config{TTL: DefaultTTL, Issuer: os.Getenv("TOKEN_ISSUER")}
	if cfg.Issuer == "" {
		cfg.Issuer = "service-analogy-go"
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("TOKEN_TTL: invalid duration %q", v)
		}
		cfg.TTL = d
	}
	secret := os.Getenv("JWT_SECRET")
	switch {
	case secret != "":
		cfg.Secret = []byte(secret)
	case dev:
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return Config{}, err
		}
		cfg.Secret = []byte(base64.RawURLEncoding.EncodeToString(b))
	default:
		return Config{}, ErrNoSecret
	}
	return cfg, nil
}

// Token is an issued bearer token.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 tokens. It holds no mutable state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Option func(*TokenService)

// WithClock overrides the wall clock used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(cfg Config, opts ...Option) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNoSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &TokenService{secret: cfg.Secret, ttl: ttl, issuer: cfg.Issuer, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL reports the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID expiring TTL after issuance.
func (s *TokenService) Issue(userID int64) (Token, error) {
	// claims carry whole seconds, so expiry is computed from the truncated time
	iat := s.now().UTC().Truncate(time.Second)
	exp := iat.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks the signature and then the expiry, and returns the subject.
// A token is valid strictly before its expiry.
func (s *TokenService) Verify(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return 0, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return id, nil
}
