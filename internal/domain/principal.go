package domain

// Principal identifies the user behind a request. The zero value is anonymous.
type Principal struct {
	Subject string
}

// Authenticated reports whether the principal names a user.
func (p Principal) Authenticated() bool {
	return p.Subject != ""
}
