package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a member of the social network.
type User struct {
	ID        uuid.UUID // ID is the unique identifier for the user
	Username  string    // Username is the unique handle of the user
	Email     string    // Email is the unique registration email of the user
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
