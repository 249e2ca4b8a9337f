package user

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID  string
	Email   string
	IsAdmin bool
}
