package session

// Store persists bearer session tokens.
type Store interface {
	New(userID string) (string, error)
	UserID(token string) (string, bool, error)
	Delete(token string) error
}
