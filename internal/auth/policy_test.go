package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mentora/mentora/internal/auth"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	ownID := uuid.New()
	otherID := uuid.New()

	student := &auth.User{ID: ownID, Role: auth.RoleStudent}
	admin := &auth.User{ID: uuid.New(), Role: auth.RoleAdmin}

	t.Run("student can access own resource", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, auth.Authorize(student, ownID))
	})

	t.Run("student cannot access another user's resource", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, auth.Authorize(student, otherID), auth.ErrForbidden)
	})

	t.Run("admin can access any resource", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, auth.Authorize(admin, otherID))
		assert.NoError(t, auth.Authorize(admin, admin.ID))
	})

	t.Run("nil requester is forbidden", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, auth.Authorize(nil, otherID), auth.ErrForbidden)
	})
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	student := &auth.User{ID: uuid.New(), Role: auth.RoleStudent}
	admin := &auth.User{ID: uuid.New(), Role: auth.RoleAdmin}

	assert.NoError(t, auth.RequireRole(admin, auth.RoleAdmin))
	assert.NoError(t, auth.RequireRole(student, auth.RoleStudent))
	assert.ErrorIs(t, auth.RequireRole(student, auth.RoleAdmin), auth.ErrForbidden)
	assert.ErrorIs(t, auth.RequireRole(nil, auth.RoleStudent), auth.ErrForbidden)
}

func TestRoleIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, auth.RoleStudent.IsValid())
	assert.True(t, auth.RoleAdmin.IsValid())
	assert.False(t, auth.Role("teacher").IsValid())
	assert.False(t, auth.Role("").IsValid())
}
