package service

import (
	"context"
	"testing"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (
	*AuthServiceImpl,
	*mocks.MockCaregiverRepository,
	*mocks.MockHashService,
	*mocks.MockTokenService,
	*gomock.Controller,
) {
	ctrl := gomock.NewController(t)
	caregiverRepo := mocks.NewMockCaregiverRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	svc := NewAuthService(caregiverRepo, hashSvc, tokenSvc)
	return svc, caregiverRepo, hashSvc, tokenSvc, ctrl
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, caregiverRepo, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	req := ports.RegisterRequest{
		Username: "new_caregiver",
		Password: "StrongP@ss123",
		Name:     "Asha K",
	}

	caregiverRepo.EXPECT().GetByUsername(ctx, req.Username).Return(nil, nil)
	hashSvc.EXPECT().Hash(req.Password).Return("$argon2id$stored-hash", nil)
	caregiverRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	resp, err := svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEqual(t, uuid.Nil, resp.CaregiverID)
	assert.Equal(t, "new_caregiver", resp.Username)
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	svc, _, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	_, err := svc.Register(context.Background(), ports.RegisterRequest{
		Username: "user", Password: "short", Name: "X",
	})
	assertAppError(t, err, "LED_004")
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, caregiverRepo, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	existing := &domain.Caregiver{Username: "existing_user"}
	caregiverRepo.EXPECT().GetByUsername(ctx, "existing_user").Return(existing, nil)

	resp, err := svc.Register(ctx, ports.RegisterRequest{
		Username: "existing_user", Password: "password123", Name: "X",
	})
	assert.Nil(t, resp)
	assertAppError(t, err, "LED_004")
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, caregiverRepo, hashSvc, tokenSvc, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	caregiverID := uuid.New()
	caregiver := &domain.Caregiver{
		ID:           caregiverID,
		Username:     "asha_k",
		PasswordHash: "$argon2id$stored-hash",
	}

	caregiverRepo.EXPECT().GetByUsername(ctx, "asha_k").Return(caregiver, nil)
	hashSvc.EXPECT().Verify("correct_password", "$argon2id$stored-hash").Return(true, nil)
	tokenSvc.EXPECT().Generate(caregiverID, "asha_k").Return("jwt_token_here", time.Now().Add(24*time.Hour), nil)

	token, _, err := svc.Login(ctx, "asha_k", "correct_password")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", token)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	svc, caregiverRepo, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	caregiverRepo.EXPECT().GetByUsername(ctx, "nonexistent").Return(nil, nil)

	_, _, err := svc.Login(ctx, "nonexistent", "password")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, caregiverRepo, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	caregiver := &domain.Caregiver{
		ID:           uuid.New(),
		Username:     "asha_k",
		PasswordHash: "$argon2id$stored-hash",
	}

	caregiverRepo.EXPECT().GetByUsername(ctx, "asha_k").Return(caregiver, nil)
	hashSvc.EXPECT().Verify("wrong_password", "$argon2id$stored-hash").Return(false, nil)

	_, _, err := svc.Login(ctx, "asha_k", "wrong_password")
	assertAppError(t, err, "AUTH_001")
}
