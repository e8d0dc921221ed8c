package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/database/inmem"
)

func TestService_Sync(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo)
	ctx := context.Background()

	usr, err := svc.Sync(ctx, user.User{Name: " Jane ", Username: " Jane ", Email: "Jane@Test.com", IsActive: true, Roles: []string{user.RoleStaff}})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "Jane", usr.Name)
	assert.Equal(t, "jane", usr.Username)
	assert.Equal(t, "jane@test.com", usr.Email)
	assert.False(t, usr.CreatedAt.IsZero())

	t.Run("update keeps id & roles", func(t *testing.T) {
		upd, err := svc.Sync(ctx, user.User{Name: "Jane Doe", Username: "jane", Email: "jane@doe.com", IsActive: false})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, upd.ID)
		assert.Equal(t, []string{user.RoleStaff}, upd.Roles)
		assert.True(t, usr.CreatedAt.Equal(upd.CreatedAt))
		assert.False(t, upd.IsActive)
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := svc.GetByUsernameOrEmail(ctx, "JANE@doe.com")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		got, err = svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.Name)

		_, err = svc.GetByID(ctx, "unknown")
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUser_roles(t *testing.T) {
	admin := user.User{Roles: []string{user.RoleAdmin}}
	staff := user.User{Roles: []string{user.RoleStaff + "support"}}
	student := user.User{Roles: []string{user.RoleStudent}}

	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsStaff())
	assert.False(t, staff.IsAdmin())
	assert.True(t, staff.IsStaff())
	assert.False(t, student.IsStaff())
}
