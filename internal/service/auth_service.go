package service

import (
	"context"
	"fmt"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	caregiverRepo ports.CaregiverRepository
	hashSvc       ports.HashService
	tokenSvc      ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	caregiverRepo ports.CaregiverRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		caregiverRepo: caregiverRepo,
		hashSvc:       hashSvc,
		tokenSvc:      tokenSvc,
	}
}

// Register creates a new caregiver account.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	if len(req.Password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}

	// Check username uniqueness
	existing, err := s.caregiverRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.Validation("username already exists")
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	caregiver := &domain.Caregiver{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Name:         req.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.caregiverRepo.Create(ctx, caregiver); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create caregiver: %w", err))
	}

	return &ports.RegisterResponse{
		CaregiverID: caregiver.ID,
		Username:    caregiver.Username,
	}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	caregiver, err := s.caregiverRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find caregiver: %w", err))
	}
	if caregiver == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, caregiver.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Generate JWT
	token, expiry, err := s.tokenSvc.Generate(caregiver.ID, caregiver.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
