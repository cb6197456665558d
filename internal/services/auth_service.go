package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-service/internal/models"
	"social-service/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("unAuthorization")
	ErrMissingToken = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrUnknownUser  = fmt.Errorf("%w: unknown user", ErrUnauthorized)
)

// UserFinder resolves user records by id.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthService verifies gateway bearer tokens and issues them for local tooling.
type AuthService struct {
	users      UserFinder
	jwtSecret  string
	expiration time.Duration
	now        func() time.Time
}

func NewAuthService(users UserFinder, jwtSecret string, expiration time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  jwtSecret,
		expiration: expiration,
		now:        time.Now,
	}
}

// IssueToken signs an HS256 token carrying the user id.
func (s *AuthService) IssueToken(userID uint) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.expiration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// Authenticate checks signature and expiry, then confirms the user still exists.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (uint, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return 0, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, ok := userIDFromClaims(claims)
	if !ok {
		return 0, fmt.Errorf("%w: user id claim must be a positive number", ErrInvalidToken)
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return 0, ErrUnknownUser
		}
		return 0, fmt.Errorf("%w: %v", ErrUnknownUser, err)
	}

	return userID, nil
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"user_id", "id"} {
		if raw, ok := claims[key].(float64); ok && raw > 0 && raw == float64(uint(raw)) {
			return uint(raw), true
		}
	}
	return 0, false
}
