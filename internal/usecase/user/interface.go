package user

import (
	"context"

	"github.com/google/uuid"

	domain "social-user-service/internal/domain/user"
)

// Usecase defines the user business operations consumed by the transport layer.
//
// Lookups by id return a *errors.NotFoundError when the user does not exist.
// Lookups by username or email return (nil, nil) instead.
type Usecase interface {
	GetUsers(ctx context.Context, page, size int) (domain.Page[domain.User], error)
	GetUsersWithUsername(ctx context.Context, username string, page, size int) (domain.Page[domain.User], error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByRegEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserByID(ctx context.Context, id uuid.UUID, in UpdateUserRequest) (*domain.User, error)
	DeleteUserByID(ctx context.Context, id uuid.UUID) error
	GetFriendsOfUserByID(ctx context.Context, id uuid.UUID, page, size int) (domain.Page[domain.User], error)
	AddFriend(ctx context.Context, id, friendID uuid.UUID) error
	RemoveFriend(ctx context.Context, id, friendID uuid.UUID) error
}
