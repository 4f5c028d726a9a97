package services

import (
	"context"
	"testing"
	"time"

	"campus-food-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	users := newMemUsers()
	svc := NewUserService(users, "secret", time.Hour, testPolicy)

	registered, err := svc.Register(context.Background(), "  Priya  ", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Priya", registered.Name)
	assert.Equal(t, 1, registered.Level)
	assert.Equal(t, "Food Saver", registered.Title)
	assert.Equal(t, testPolicy.WeeklyGoal, registered.WeeklyGoal)
	assert.NotEmpty(t, registered.Token)

	identity, err := svc.ValidateJWT(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: registered.ID, Role: models.RoleStudent}, identity)

	stored, err := svc.Get(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Priya", stored.Name)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewUserService(newMemUsers(), "secret", time.Hour, testPolicy)

	_, err := svc.Register(context.Background(), " ", models.RoleStudent)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(context.Background(), "Priya", models.Role("admin"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateJWT_Rejects(t *testing.T) {
	svc := NewUserService(newMemUsers(), "secret", time.Hour, testPolicy)
	other := NewUserService(newMemUsers(), "other-secret", time.Hour, testPolicy)
	expired := NewUserService(newMemUsers(), "secret", -time.Minute, testPolicy)

	foreign, err := other.GenerateJWT("u1", models.RoleNGO)
	require.NoError(t, err)
	stale, err := expired.GenerateJWT("u1", models.RoleNGO)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
		"missing role": noRole,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateJWT(token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.Equal(t, KindUnauthorized, KindOf(err))
		})
	}
}
