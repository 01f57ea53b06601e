package service

import (
	"fmt"
	"time"

	"trust-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// caregiverClaims carries the dashboard identity inside the JWT.
type caregiverClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate issues a signed token for the caregiver and returns its expiry.
func (s *JWTTokenService) Generate(caregiverID uuid.UUID, username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := caregiverClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caregiverID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks the signature and expiry and extracts the identity.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims caregiverClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	caregiverID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid caregiver ID in token: %w", err)
	}

	return &ports.TokenClaims{
		CaregiverID: caregiverID,
		Username:    claims.Username,
	}, nil
}
