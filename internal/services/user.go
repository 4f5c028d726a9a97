package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the caller resolved from an identity token
type Identity struct {
	UserID string
	Role   models.Role
}

// UserStore is the persistence needed by the user and reward services
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	IDsByRoles(ctx context.Context, roles ...models.Role) ([]string, error)
	Mutate(ctx context.Context, id string, fn repository.UserMutation) (*models.User, error)
}

// UserService handles registration and identity tokens
type UserService struct {
	userRepo  UserStore
	jwtSecret string
	tokenTTL  time.Duration
	weekly    RewardsPolicy
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, jwtSecret string, tokenTTL time.Duration, policy RewardsPolicy) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		weekly:    policy,
	}
}

// RegisteredUser is a new user together with its identity token
type RegisteredUser struct {
	*models.User
	Token string `json:"token"`
}

// Register creates a user with a fixed role and issues a token for it
func (s *UserService) Register(ctx context.Context, name string, role models.Role) (*RegisteredUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Role:         role,
		Level:        1,
		Title:        titleForLevel(1),
		Badges:       []string{},
		WeeklyGoal:   s.weekly.WeeklyGoal,
		WeeklyReward: s.weekly.WeeklyReward,
		CreatedAt:    time.Now(),
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &RegisteredUser{User: user, Token: token}, nil
}

// Get retrieves a user by id
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// GenerateJWT generates a JWT token carrying the user id and role
func (s *UserService) GenerateJWT(userID string, role models.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the identity it carries
func (s *UserService) ValidateJWT(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !models.Role(role).Valid() {
		return Identity{}, fmt.Errorf("%w: token is missing user_id or role", ErrUnauthenticated)
	}

	return Identity{UserID: userID, Role: models.Role(role)}, nil
}
