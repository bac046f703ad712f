package store

import (
	"errors"

	"campuspass/pkg/domain"
)

// ErrNotFound is returned when a request identifier does not exist.
var ErrNotFound = errors.New("request not found")

// Store defines persistence operations for users and pass requests.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasRoll(roll string) (bool, error)
	GetUserByRoll(roll string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// requests
	CreateRequest(domain.Request) (domain.Request, error)
	ListByOwner(ownerID string) ([]domain.Request, error)
	ListAll() ([]domain.Request, error)
	GetRequest(id string) (domain.Request, bool, error)
	Approve(id string) (domain.Request, error)
}
