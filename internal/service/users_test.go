package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

func TestUsersAdminOnly(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())

	regular := createUser(t, gormDB, "alice", policy.RoleUser)
	moderator := createUser(t, gormDB, "mod", policy.RoleModerator)

	for _, actor := range []policy.Actor{policy.Anonymous, regular.Actor(), moderator.Actor()} {
		_, _, err := users.List(actor, "", Page{})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = users.Create(actor, CreateUserInput{Username: "new", Email: "new@example.com"})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = users.GetByUsername(actor, "alice")
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		err = users.DeleteByUsername(actor, "alice")
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	}
}

func TestUsersSuperuserActsAsAdmin(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())

	super := db.User{
		Username:  "boss",
		Email:     "boss@example.com",
		Role:      policy.RoleUser,
		Superuser: true,
		Active:    true,
	}
	require.NoError(t, gormDB.Create(&super).Error)

	created, err := users.Create(super.Actor(), CreateUserInput{
		Username: "worker",
		Email:    "worker@example.com",
		Role:     policy.RoleModerator,
	})
	require.NoError(t, err)
	assert.Equal(t, policy.RoleModerator, created.Role)
}

func TestUsersCreateDefaultsAndConflicts(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()

	created, err := users.Create(admin, CreateUserInput{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, policy.RoleUser, created.Role)

	_, err = users.Create(admin, CreateUserInput{Username: "alice", Email: "other@example.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = users.Create(admin, CreateUserInput{Username: "other", Email: "alice@example.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = users.Create(admin, CreateUserInput{Username: "me", Email: "me@example.com"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	badRole := policy.Role("overlord")
	_, err = users.Create(admin, CreateUserInput{Username: "bad", Email: "bad@example.com", Role: badRole})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUsersSearch(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin)

	createUser(t, gormDB, "alice", policy.RoleUser)
	createUser(t, gormDB, "alicia", policy.RoleUser)
	createUser(t, gormDB, "bob", policy.RoleUser)

	listed, total, err := users.List(admin.Actor(), "alic", Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, listed, 2)

	_, total, err = users.List(admin.Actor(), "", Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestUsersUpdateRole(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())
	admin := createUser(t, gormDB, "root", policy.RoleAdmin).Actor()
	createUser(t, gormDB, "alice", policy.RoleUser)

	role := policy.RoleModerator
	updated, err := users.UpdateByUsername(admin, "alice", UpdateUserInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, policy.RoleModerator, updated.Role)

	_, err = users.UpdateByUsername(admin, "ghost", UpdateUserInput{Role: &role})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMeRequiresAuth(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())

	_, err := users.Me(policy.Anonymous)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestMePatchIgnoresRole(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())
	alice := createUser(t, gormDB, "alice", policy.RoleUser)

	bio := "likes long walks"
	role := policy.RoleAdmin
	updated, err := users.UpdateMe(alice.Actor(), UpdateUserInput{Bio: &bio, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "likes long walks", updated.Bio)
	assert.Equal(t, policy.RoleUser, updated.Role)

	me, err := users.Me(alice.Actor())
	require.NoError(t, err)
	assert.Equal(t, policy.RoleUser, me.Role)
}

func TestUserDeleteCascades(t *testing.T) {
	gormDB := newTestDB(t)
	users := NewUsers(gormDB, testLogger())
	reviews := NewReviews(gormDB, testLogger())
	comments := NewComments(gormDB, testLogger())

	admin := createUser(t, gormDB, "root", policy.RoleAdmin)
	alice := createUser(t, gormDB, "alice", policy.RoleUser)
	bob := createUser(t, gormDB, "bob", policy.RoleUser)
	title := createTitle(t, gormDB, "Solaris", 1972)

	review, err := reviews.Create(alice.Actor(), title.ID, "great", 7)
	require.NoError(t, err)
	_, err = comments.Create(bob.Actor(), title.ID, review.ID, "agreed")
	require.NoError(t, err)

	// removing the author takes the review and everything under it
	require.NoError(t, users.DeleteByUsername(admin.Actor(), "alice"))

	_, err = reviews.Get(title.ID, review.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	var commentCount int64
	require.NoError(t, gormDB.Model(&db.Comment{}).Count(&commentCount).Error)
	assert.Zero(t, commentCount)
}
