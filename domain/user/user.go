// Package user provides the authenticated user seen by local collections.
package user

// User identifies the owner of local collections.
type User struct {
	ID    string
	Email string
}

// Provider returns the currently signed-in user, if any.
type Provider interface {
	CurrentUser() (User, bool)
}

// Static is a Provider that always returns the same user.
// An empty ID means no one is signed in.
type Static User

// CurrentUser implements Provider.
func (s Static) CurrentUser() (User, bool) {
	if s.ID == "" {
		return User{}, false
	}
	return User(s), true
}

// Guest is a Provider with no signed-in user.
var Guest Provider = Static{}
