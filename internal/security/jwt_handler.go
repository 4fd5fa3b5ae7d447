package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/sentryhub/capturectl/internal/logging"
)

// Claims is the JWT claim set this system issues and verifies:
// {sub, email, exp, iat, iss} per spec §6, HS256-signed.
type Claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	IssuedAt int64  `json:"iat"`
	Expires  int64  `json:"exp"`
	Issuer   string `json:"iss"`
}

// JWTHandler issues and validates HS256 JWTs carrying Claims.
type JWTHandler struct {
	secretKey string
	issuer    string
	logger    *logging.Logger
}

// NewJWTHandler constructs a JWTHandler. secretKey must be at least 32
// bytes per spec §6's security.jwt_secret constraint.
func NewJWTHandler(secretKey, issuer string, logger *logging.Logger) (*JWTHandler, error) {
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if logger == nil {
		logger = logging.GetLogger("jwt-handler")
	}
	return &JWTHandler{secretKey: secretKey, issuer: issuer, logger: logger}, nil
}

// GenerateToken issues a signed token for subject/email, expiring after
// ttl.
func (h *JWTHandler) GenerateToken(subject, email string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("subject cannot be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   now,
		"exp":   now + int64(ttl.Seconds()),
		"iss":   h.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.secretKey))
	if err != nil {
		h.logger.WithError(err).Error("failed to sign JWT")
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	h.logger.WithFields(logging.Fields{
		"sub": subject,
		"exp": time.Unix(claims["exp"].(int64), 0).Format(time.RFC3339),
	}).Debug("issued JWT")
	return signed, nil
}

// ValidateToken parses and verifies tokenString, restricting the
// algorithm to HS256 to prevent algorithm-confusion attacks, and
// rejects expired tokens.
func (h *JWTHandler) ValidateToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unsupported signing method: %v", token.Method.Alg())
		}
		return []byte(h.secretKey), nil
	})
	if err != nil {
		h.logger.WithError(err).Warn("JWT validation failed")
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	raw, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	subject, _ := raw["sub"].(string)
	if subject == "" {
		return nil, fmt.Errorf("missing required field: sub")
	}
	exp, ok := raw["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing required field: exp")
	}
	iat, _ := raw["iat"].(float64)
	email, _ := raw["email"].(string)
	issuer, _ := raw["iss"].(string)

	if time.Now().Unix() > int64(exp) {
		return nil, fmt.Errorf("token has expired")
	}

	return &Claims{
		Subject:  subject,
		Email:    email,
		IssuedAt: int64(iat),
		Expires:  int64(exp),
		Issuer:   issuer,
	}, nil
}

// IsTokenExpired reports whether tokenString is expired, without
// verifying its signature. Used by callers that only need a cheap,
// pre-validation expiry check.
func (h *JWTHandler) IsTokenExpired(tokenString string) bool {
	if strings.TrimSpace(tokenString) == "" {
		return true
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return true
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return true
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return true
	}
	return time.Now().Unix() > int64(exp)
}
