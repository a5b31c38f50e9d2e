package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	sess := &Session{ID: "sess-1"}
	StoreActor(sess, Actor{
		UserID:      "42",
		RoleName:    "INSTRUCTOR",
		Permissions: []string{"course:READ", "course:UPDATE"},
	})

	actor, ok := ActorFromSession(sess)
	require.True(t, ok)
	assert.Equal(t, "42", actor.UserID)
	assert.Equal(t, "INSTRUCTOR", actor.RoleName)
	assert.Equal(t, []string{"course:READ", "course:UPDATE"}, actor.Permissions)
}

func TestActorFromUnauthenticatedSession(t *testing.T) {
	_, ok := ActorFromSession(nil)
	assert.False(t, ok)

	_, ok = ActorFromSession(&Session{ID: "sess-1"})
	assert.False(t, ok)
}

func TestActorCorruptPermissionsPayload(t *testing.T) {
	sess := &Session{ID: "sess-1"}
	sess.SetUser("42")
	sess.Set("actor_role", "ADMIN")
	sess.Set("actor_permissions", "{not json")

	_, ok := ActorFromSession(sess)
	assert.False(t, ok)
}

func TestActorWithoutRoleStillResolvesUser(t *testing.T) {
	sess := &Session{ID: "sess-1"}
	StoreActor(sess, Actor{UserID: "42"})

	actor, ok := ActorFromSession(sess)
	require.True(t, ok)
	assert.Empty(t, actor.RoleName)
	assert.Empty(t, actor.Permissions)
}
