package cart

// Identity is the session identity the cart engine reacts to.
// It is either Guest or Authenticated with a user identifier; the engine
// has no authority to change it, only to reload its view when it changes.
type Identity struct {
	userID string
}

// Guest returns the anonymous identity
func Guest() Identity {
	return Identity{}
}

// Authenticated returns the identity for the given user identifier.
// An empty userID degenerates to Guest.
func Authenticated(userID string) Identity {
	return Identity{userID: userID}
}

// IsGuest reports whether the identity is anonymous
func (i Identity) IsGuest() bool {
	return i.userID == ""
}

// UserID returns the user identifier and whether the identity is authenticated
func (i Identity) UserID() (string, bool) {
	return i.userID, i.userID != ""
}

// String returns a loggable representation
func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user:" + i.userID
}
