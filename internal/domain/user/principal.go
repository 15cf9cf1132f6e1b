package user

// Principal is the authenticated identity attached to a request. UserID is
// the same identifier the matchmaking tables use as player public id.
type Principal struct {
	UserID      string
	DisplayName string
}
