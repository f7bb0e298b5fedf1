package models

// Principal is the authenticated caller identity resolved once by the auth
// middleware (session verification or API key) and threaded explicitly through
// every operation. UserID is always the local users.id, never the external
// identity-provider ID.
type Principal struct {
	UserID string
}
