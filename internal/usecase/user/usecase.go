package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "social-user-service/internal/domain/user"
	apperrors "social-user-service/pkg/errors"
	"social-user-service/pkg/security"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, SQLite, a caching decorator) to be used interchangeably.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error                                                  // Create a new user
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)                                   // Retrieve user by ID, NotFoundError if absent
	GetByUsername(ctx context.Context, username string) (*domain.User, error)                          // Retrieve user by username, nil if absent
	GetByEmail(ctx context.Context, email string) (*domain.User, error)                                // Retrieve user by email, nil if absent
	Update(ctx context.Context, u *domain.User) error                                                  // Update existing user
	Delete(ctx context.Context, id uuid.UUID) error                                                    // Delete user and friendships, NotFoundError if absent
	List(ctx context.Context, page, size int) ([]domain.User, int64, error)                            // List users ordered by username
	ListByUsername(ctx context.Context, username string, page, size int) ([]domain.User, int64, error) // List users with exactly this username
	ListFriends(ctx context.Context, id uuid.UUID, page, size int) ([]domain.User, int64, error)       // List friends ordered by username
	AddFriendship(ctx context.Context, id, friendID uuid.UUID) error                                   // Link two users in both directions
	RemoveFriendship(ctx context.Context, id, friendID uuid.UUID) error                                // Unlink two users in both directions
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Service implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

var _ Usecase = (*Service)(nil)

// New creates a new user Service backed by the given repository.
func New(r Repository, log *zap.Logger) *Service {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return &Service{repo: r, log: log, validate: v}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "username":
			messages = append(messages, fmt.Sprintf("%s may only contain letters, digits, '.', '_' and '-'", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError("", strings.Join(messages, ", "))
}

// normalizePage applies the default pagination policy and rejects pages
// whose record offset does not fit in an int.
func normalizePage(page, size int) (int, int, error) {
	if page < 0 {
		page = domain.DefaultPage
	}
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	if size > domain.MaxPageSize {
		size = domain.MaxPageSize
	}
	if _, err := domain.Offset(page, size); err != nil {
		return 0, 0, apperrors.NewBadFormatError("page", strconv.Itoa(page), err)
	}
	return page, size, nil
}

func validateLookup(field, value string) error {
	if err := security.ValidateLookupValue(value); err != nil {
		return apperrors.NewValidationError(field, err.Error())
	}
	return nil
}

// GetUsers returns one page of all users ordered by username.
func (s *Service) GetUsers(ctx context.Context, page, size int) (domain.Page[domain.User], error) {
	page, size, err := normalizePage(page, size)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	s.log.Debug("listing users", zap.Int("page", page), zap.Int("size", size))

	users, total, err := s.repo.List(ctx, page, size)
	if err != nil {
		s.log.Error("failed to list users", zap.Int("page", page), zap.Int("size", size), zap.Error(err))
		return domain.Page[domain.User]{}, apperrors.NewInternalError("failed to list users", err)
	}
	return domain.NewPage(users, page, size, total), nil
}

// GetUsersWithUsername returns one page of users whose username equals username.
func (s *Service) GetUsersWithUsername(ctx context.Context, username string, page, size int) (domain.Page[domain.User], error) {
	page, size, err := normalizePage(page, size)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}

	if err := validateLookup("username", username); err != nil {
		s.log.Warn("invalid username filter", zap.String("username", username), zap.Error(err))
		return domain.Page[domain.User]{}, err
	}

	users, total, err := s.repo.ListByUsername(ctx, username, page, size)
	if err != nil {
		s.log.Error("failed to list users by username", zap.String("username", username), zap.Error(err))
		return domain.Page[domain.User]{}, apperrors.NewInternalError("failed to list users", err)
	}
	return domain.NewPage(users, page, size, total), nil
}

// CreateUser creates a new user after validating the request and checking
// username and email uniqueness.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error) {
	s.log.Info("creating user", zap.String("username", in.Username), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if err := s.ensureUnique(ctx, uuid.Nil, in.Username, in.Email); err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:        uuid.New(),
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// a concurrent create can still win the race past ensureUnique
		var exists *apperrors.AlreadyExistsError
		if errors.As(err, &exists) {
			s.log.Warn("user already exists", zap.String("username", in.Username), zap.String("email", in.Email))
			return nil, exists
		}
		s.log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	s.log.Info("user created", zap.String("id", u.ID.String()))
	return u, nil
}

// ensureUnique checks that username and email are not taken by a user other than self.
// Empty values are skipped.
func (s *Service) ensureUnique(ctx context.Context, self uuid.UUID, username, email string) error {
	if username != "" {
		existing, err := s.repo.GetByUsername(ctx, username)
		if err != nil {
			s.log.Error("failed to check existing username", zap.String("username", username), zap.Error(err))
			return apperrors.NewInternalError("failed to validate username uniqueness", err)
		}
		if existing != nil && existing.ID != self {
			s.log.Warn("username already exists", zap.String("username", username))
			return apperrors.NewAlreadyExistsError("username", "")
		}
	}

	if email != "" {
		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			s.log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
			return apperrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if existing != nil && existing.ID != self {
			s.log.Warn("email already exists", zap.String("email", email))
			return apperrors.NewAlreadyExistsError("email", "")
		}
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError("failed to get user", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username. It returns (nil, nil) when no user matches.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := validateLookup("username", username); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.log.Error("failed to get user by username", zap.String("username", username), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return u, nil
}

// GetUserByRegEmail retrieves a user by registration email. It returns (nil, nil) when no user matches.
func (s *Service) GetUserByRegEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := s.validate.Var(email, "email,max=254"); err != nil {
		s.log.Warn("invalid email lookup", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewValidationError("email", "email must be a valid email")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.Error("failed to get user by email", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return u, nil
}

// UpdateUserByID applies a partial update to an existing user.
func (s *Service) UpdateUserByID(ctx context.Context, id uuid.UUID, in UpdateUserRequest) (*domain.User, error) {
	s.log.Info("updating user", zap.String("id", id.String()), zap.String("username", in.Username), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError("failed to get user", id, err)
	}
	if in.IsEmpty() {
		return existing, nil
	}

	// existing may be shared with concurrent readers
	updated := *existing

	username := ""
	if in.Username != "" && in.Username != updated.Username {
		username = in.Username
		updated.Username = in.Username
	}
	email := ""
	if in.Email != "" && in.Email != updated.Email {
		email = in.Email
		updated.Email = in.Email
	}
	if err := s.ensureUnique(ctx, id, username, email); err != nil {
		return nil, err
	}

	if in.FirstName != "" {
		updated.FirstName = in.FirstName
	}
	if in.LastName != "" {
		updated.LastName = in.LastName
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.lookupError("failed to update user", id, err)
	}
	return &updated, nil
}

// DeleteUserByID deletes a user together with its friendships.
func (s *Service) DeleteUserByID(ctx context.Context, id uuid.UUID) error {
	s.log.Info("deleting user", zap.String("id", id.String()))

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError("failed to delete user", id, err)
	}
	return nil
}

// GetFriendsOfUserByID returns one page of the user's friends ordered by username.
func (s *Service) GetFriendsOfUserByID(ctx context.Context, id uuid.UUID, page, size int) (domain.Page[domain.User], error) {
	page, size, err := normalizePage(page, size)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return domain.Page[domain.User]{}, s.lookupError("failed to get user", id, err)
	}

	friends, total, err := s.repo.ListFriends(ctx, id, page, size)
	if err != nil {
		s.log.Error("failed to list friends", zap.String("id", id.String()), zap.Error(err))
		return domain.Page[domain.User]{}, apperrors.NewInternalError("failed to list friends", err)
	}
	return domain.NewPage(friends, page, size, total), nil
}

// AddFriend links two existing users. Adding an existing friendship is a no-op.
func (s *Service) AddFriend(ctx context.Context, id, friendID uuid.UUID) error {
	s.log.Info("adding friend", zap.String("id", id.String()), zap.String("friend_id", friendID.String()))

	if id == friendID {
		return apperrors.NewValidationError("friendId", "a user cannot befriend themselves")
	}
	if err := s.ensureExists(ctx, id, friendID); err != nil {
		return err
	}

	if err := s.repo.AddFriendship(ctx, id, friendID); err != nil {
		s.log.Error("failed to add friendship", zap.Error(err))
		return apperrors.NewInternalError("failed to add friend", err)
	}
	return nil
}

// RemoveFriend unlinks two existing users. Removing a missing friendship is a no-op.
func (s *Service) RemoveFriend(ctx context.Context, id, friendID uuid.UUID) error {
	s.log.Info("removing friend", zap.String("id", id.String()), zap.String("friend_id", friendID.String()))

	if err := s.ensureExists(ctx, id, friendID); err != nil {
		return err
	}

	if err := s.repo.RemoveFriendship(ctx, id, friendID); err != nil {
		s.log.Error("failed to remove friendship", zap.Error(err))
		return apperrors.NewInternalError("failed to remove friend", err)
	}
	return nil
}

func (s *Service) ensureExists(ctx context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return s.lookupError("failed to get user", id, err)
		}
	}
	return nil
}

// lookupError passes NotFoundError and AlreadyExistsError through and wraps
// anything else as internal.
func (s *Service) lookupError(msg string, id uuid.UUID, err error) error {
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		s.log.Warn("user not found", zap.String("id", id.String()))
		return notFound
	}
	var exists *apperrors.AlreadyExistsError
	if errors.As(err, &exists) {
		s.log.Warn("user already exists", zap.String("id", id.String()))
		return exists
	}
	s.log.Error(msg, zap.String("id", id.String()), zap.Error(err))
	return apperrors.NewInternalError(msg, err)
}
