package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yashrajoria/flash-sale-service/models"
	"github.com/yashrajoria/flash-sale-service/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type ITokenService interface {
	GenerateToken(userID, email, role string) (string, error)
}

type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User  *models.Account `json:"user"`
	Token string          `json:"token"`
}

type AuthService struct {
	accounts     repository.AccountRepository
	tokenService ITokenService
	logger       *zap.Logger
}

func NewAuthService(accounts repository.AccountRepository, ts ITokenService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{accounts: accounts, tokenService: ts, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password")
	}

	account := &models.Account{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.FirstName + " " + in.LastName),
		Email:       email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Password:    string(hashedPassword),
		Role:        models.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("Account registered", zap.String("user_id", account.ID))
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.GenerateToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &LoginResult{User: account, Token: token}, nil
}
