package shared

import "encoding/json"

const (
	actorRoleSessionKey  = "actor_role"
	actorPermsSessionKey = "actor_permissions"
)

// Actor is the authorization identity resolved at login: the user's role
// name and the permission keys that role held at session start. It is the
// only input the evaluation engine ever sees.
type Actor struct {
	UserID      string
	RoleName    string
	Permissions []string
}

// StoreActor writes the actor into the session.
func StoreActor(sess *Session, actor Actor) {
	if sess == nil {
		return
	}
	sess.SetUser(actor.UserID)
	sess.Set(actorRoleSessionKey, actor.RoleName)
	perms, _ := json.Marshal(actor.Permissions)
	sess.Set(actorPermsSessionKey, string(perms))
}

// ActorFromSession reads the actor back out of the session. The second
// return is false when no actor was resolved (unauthenticated session), in
// which case every permission check must deny.
func ActorFromSession(sess *Session) (Actor, bool) {
	if sess == nil || sess.User() == "" {
		return Actor{}, false
	}
	actor := Actor{
		UserID:   sess.User(),
		RoleName: sess.Get(actorRoleSessionKey),
	}
	if raw := sess.Get(actorPermsSessionKey); raw != "" {
		if err := json.Unmarshal([]byte(raw), &actor.Permissions); err != nil {
			// Corrupt session payload: treat as no resolved role.
			return Actor{}, false
		}
	}
	return actor, true
}
