package service

// Caller is the identity an upstream gateway attached to a request.
type Caller struct {
	UserID    string
	SessionID string
	Admin     bool
}

// canSee reports whether the caller may read a resource owned by ownerID.
func (c Caller) canSee(ownerID string) bool {
	return c.Admin || (c.UserID != "" && c.UserID == ownerID)
}
