package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/chocolog/api/internal/domain"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrTokenExpired signals that the provided access token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the provided access token failed verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims carries the employee identity embedded in issued access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Login string `json:"login"`
	Role  string `json:"role"`
}

// TokenService issues and verifies HMAC-signed employee access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises TokenService behaviour.
type TokenOption func(*TokenService)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTokenClock injects a custom clock primarily for tests.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewTokenService constructs a TokenService signing with the supplied secret.
func NewTokenService(secret, issuer string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}

	service := &TokenService{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service, nil
}

// Issue mints an access token for the given employee.
func (s *TokenService) Issue(employee domain.Employee) (string, time.Time, error) {
	if strings.TrimSpace(employee.ID) == "" {
		return "", time.Time{}, errors.New("auth: employee id is required")
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   employee.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Login: employee.Login,
		Role:  string(employee.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates the access token, returning the embedded claims.
func (s *TokenService) Verify(tokenStr string) (Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return Claims{}, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return Claims{}, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}
