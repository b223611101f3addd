package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/types"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (*types.User, string, error)
	VerifyToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
	log          *logger.Logger
}

func NewAuthService(userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration, baseLog *logger.Logger) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, fmt.Errorf("missing JWT_SECRET_KEY")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		log:          baseLog.With("service", "AuthService"),
	}, nil
}

func (s *authService) Register(ctx context.Context, email, password, name string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apierr.Validation(fmt.Errorf("invalid email"))
	}
	if len(password) < 8 {
		return nil, "", apierr.Validation(fmt.Errorf("password must be at least 8 characters"))
	}

	exists, err := s.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, "", apierr.Internal(err)
	}
	if exists {
		return nil, "", apierr.Conflict(fmt.Errorf("email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apierr.Internal(fmt.Errorf("hashing password: %w", err))
	}

	user, err := s.userRepo.Create(ctx, nil, &types.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
	})
	if err != nil {
		return nil, "", apierr.Internal(fmt.Errorf("creating user: %w", err))
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", apierr.Internal(err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apierr.Unauthorized(fmt.Errorf("invalid credentials"))
		}
		return nil, "", apierr.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apierr.Unauthorized(fmt.Errorf("invalid credentials"))
	}
	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", apierr.Internal(err)
	}
	return user, token, nil
}

func (s *authService) issueToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *authService) VerifyToken(tokenString string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, apierr.Unauthorized(fmt.Errorf("invalid token"))
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, apierr.Unauthorized(fmt.Errorf("invalid token claims"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized(fmt.Errorf("invalid token subject"))
	}
	return userID, nil
}
