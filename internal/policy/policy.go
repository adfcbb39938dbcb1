// Package policy holds the authorization rules as a pure decision function.
// It has no knowledge of HTTP or the store; callers classify the request into
// (actor, action, resource, ownership) and get an allow/deny back.
package policy

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type Actor struct {
	ID            uint64
	Role          Role
	Superuser     bool
	Authenticated bool
}

// Anonymous is the actor attached to requests without a valid token.
var Anonymous = Actor{}

// Admin tier is satisfied by the admin role or the superuser flag.
func (a Actor) IsAdmin() bool {
	return a.Authenticated && (a.Role == RoleAdmin || a.Superuser)
}

func (a Actor) IsModerator() bool {
	return a.Authenticated && a.Role == RoleModerator
}

type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionModify
	ActionDelete
)

func (a Action) mutating() bool {
	return a != ActionRead
}

type Resource int

const (
	// ResourceCatalog covers titles, genres and categories.
	ResourceCatalog Resource = iota
	ResourceReview
	ResourceComment
	// ResourceOwnProfile is the /users/me surface.
	ResourceOwnProfile
	// ResourceUsers is user administration.
	ResourceUsers
)

// Allowed decides whether actor may perform action on a resource. owner
// reports whether the actor authored the target object; it is only meaningful
// for reviews and comments and must be false when authorship could not be
// established.
//
// Rules, first match wins:
//  1. reads of catalog/review/comment content are public;
//  2. catalog writes need the admin tier;
//  3. review/comment writes need authorship, moderator or admin;
//  4. the own-profile surface needs any authenticated actor;
//  5. user administration needs the admin tier;
// anything else is denied.
func Allowed(actor Actor, action Action, resource Resource, owner bool) bool {
	switch resource {
	case ResourceCatalog, ResourceReview, ResourceComment:
		if !action.mutating() {
			return true
		}
	}

	if !actor.Authenticated {
		return false
	}

	switch resource {
	case ResourceCatalog:
		return actor.IsAdmin()
	case ResourceReview, ResourceComment:
		if action == ActionCreate {
			return true
		}
		return owner || actor.IsModerator() || actor.IsAdmin()
	case ResourceOwnProfile:
		return true
	case ResourceUsers:
		return actor.IsAdmin()
	}

	return false
}
