package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// ErrInvalidToken is returned for any token that fails validation
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload issued to marketplace principals
type Claims struct {
	Role       string `json:"role"`
	DualRole   bool   `json:"dual_role,omitempty"`
	ActiveRole string `json:"active_role,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Raw converts the token payload into the provider-neutral claims bag
func (c *Claims) Raw() domain.Claims {
	return domain.Claims{
		Subject:     c.Subject,
		Role:        c.Role,
		HasDualRole: c.DualRole,
		ActiveRole:  c.ActiveRole,
		CompanyID:   c.CompanyID,
	}
}

type TokenManager struct {
	secret string
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "hirebridge"
	}
	return &TokenManager{secret: secret, issuer: issuer, now: time.Now}
}

// GenerateToken signs a token for claims. It is used by the dev token command and tests;
// production tokens come from the identity provider.
func (tm *TokenManager) GenerateToken(claims domain.Claims, expiresIn time.Duration) (string, error) {
	if claims.Subject == "" || claims.Role == "" {
		return "", fmt.Errorf("subject and role required")
	}
	now := tm.now()
	payload := Claims{
		Role:       claims.Role,
		DualRole:   claims.HasDualRole,
		ActiveRole: claims.ActiveRole,
		CompanyID:  claims.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString([]byte(tm.secret))
}

func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
