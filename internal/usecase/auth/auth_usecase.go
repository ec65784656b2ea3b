package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/jwt"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/password"
)

type AuthUsecase struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

func (uc *AuthUsecase) Register(
	ctx context.Context,
	email, pass, name string,
	role entity.UserRole,
) (*entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || pass == "" || name == "" {
		return nil, errors.New("all fields are required")
	}
	if role == "" {
		role = entity.RoleUser
	}

	existing, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := password.HashPassword(pass)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:    email,
		Password: hashedPassword,
		Name:     name,
		Role:     role,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *AuthUsecase) Login(
	ctx context.Context,
	email, pass string,
) (string, *entity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || pass == "" {
		return "", nil, errors.New("email and password are required")
	}

	user, err := uc.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, errors.New("invalid credentials")
	}

	if err := password.ComparePassword(user.Password, pass); err != nil {
		return "", nil, errors.New("invalid credentials")
	}

	token, err := jwt.GenerateToken(
		user.ID,
		user.Email,
		string(user.Role),
		uc.jwtSecret,
		uc.jwtExpiry,
	)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
