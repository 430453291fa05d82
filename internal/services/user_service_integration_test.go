//go:build integration

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/config"
	"eduplatform/internal/observability"
	contextutils "eduplatform/internal/utils"
)

func setupUserService(t *testing.T) *UserService {
	db := SharedTestDBSetup(t)
	t.Cleanup(func() { db.Close() })

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewUserServiceWithLogger(db, cfg, logger)
}

func TestUserService_CreateUserWithPassword_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	user, err := service.CreateUserWithPassword(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Greater(t, user.ID, 0)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Email.Valid)
	assert.Equal(t, "alice@example.com", user.Email.String)
	assert.True(t, user.PasswordHash.Valid)
	assert.NotEqual(t, "password123", user.PasswordHash.String)
}

func TestUserService_CreateUser_Duplicate_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	_, err := service.CreateUser(ctx, "alice", "")
	require.NoError(t, err)

	_, err = service.CreateUser(ctx, "alice", "")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordExists))
}

func TestUserService_AuthenticateUser_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	created, err := service.CreateUserWithPassword(ctx, "alice", "", "password123")
	require.NoError(t, err)

	user, err := service.AuthenticateUser(ctx, "alice", "password123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.ID, user.ID)

	// Wrong password and unknown user both come back nil without error
	user, err = service.AuthenticateUser(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = service.AuthenticateUser(ctx, "nobody", "password123")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_GetUserByUsername_NotFound_Integration(t *testing.T) {
	service := setupUserService(t)

	user, err := service.GetUserByUsername(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_UpdateUserProfile_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	created, err := service.CreateUser(ctx, "alice", "")
	require.NoError(t, err)

	err = service.UpdateUserProfile(ctx, created.ID, "alice@example.com", "Alice", "Ivanova")
	require.NoError(t, err)

	updated, err := service.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", updated.Email.String)
	assert.Equal(t, "Alice", updated.FirstName.String)
	assert.Equal(t, "Ivanova", updated.LastName.String)

	err = service.UpdateUserProfile(ctx, created.ID, "not-an-email", "", "")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidFormat))
}

func TestUserService_UpdateUserPassword_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	created, err := service.CreateUserWithPassword(ctx, "alice", "", "oldpassword")
	require.NoError(t, err)

	require.NoError(t, service.UpdateUserPassword(ctx, created.ID, "newpassword"))

	user, err := service.AuthenticateUser(ctx, "alice", "newpassword")
	require.NoError(t, err)
	assert.NotNil(t, user)

	user, err = service.AuthenticateUser(ctx, "alice", "oldpassword")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_DeleteUser_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	created, err := service.CreateUser(ctx, "alice", "")
	require.NoError(t, err)

	require.NoError(t, service.DeleteUser(ctx, created.ID))

	user, err := service.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, user)

	err = service.DeleteUser(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestUserService_EnsureAdminUserExists_Integration(t *testing.T) {
	service := setupUserService(t)
	ctx := context.Background()

	require.NoError(t, service.EnsureAdminUserExists(ctx, "admin", "adminpass"))

	admin, err := service.AuthenticateUser(ctx, "admin", "adminpass")
	require.NoError(t, err)
	require.NotNil(t, admin)

	// Changing the configured password rotates the stored hash
	require.NoError(t, service.EnsureAdminUserExists(ctx, "admin", "rotated"))
	rotated, err := service.AuthenticateUser(ctx, "admin", "rotated")
	require.NoError(t, err)
	require.NotNil(t, rotated)
	assert.Equal(t, admin.ID, rotated.ID)
}
