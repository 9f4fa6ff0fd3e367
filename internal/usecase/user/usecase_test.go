package user

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "social-user-service/internal/domain/user"
	apperrors "social-user-service/pkg/errors"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, page, size int) ([]domain.User, int64, error) {
	args := m.Called(ctx, page, size)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListByUsername(ctx context.Context, username string, page, size int) ([]domain.User, int64, error) {
	args := m.Called(ctx, username, page, size)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListFriends(ctx context.Context, id uuid.UUID, page, size int) ([]domain.User, int64, error) {
	args := m.Called(ctx, id, page, size)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) AddFriendship(ctx context.Context, id, friendID uuid.UUID) error {
	args := m.Called(ctx, id, friendID)
	return args.Error(0)
}

func (m *MockRepository) RemoveFriendship(ctx context.Context, id, friendID uuid.UUID) error {
	args := m.Called(ctx, id, friendID)
	return args.Error(0)
}

func setupTestService(t *testing.T) (*Service, *MockRepository) {
	mockRepo := new(MockRepository)
	svc := New(mockRepo, zaptest.NewLogger(t))
	return svc, mockRepo
}

func newUser(username string) *domain.User {
	return &domain.User{ID: uuid.New(), Username: username, Email: username + "@example.com"}
}

// ==================== LIST USERS ====================

func TestGetUsers_Success(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	users := []domain.User{*newUser("alice"), *newUser("bob")}
	repo.On("List", ctx, 0, 25).Return(users, int64(2), nil)

	page, err := svc.GetUsers(ctx, 0, 25)

	require.NoError(t, err)
	assert.Equal(t, users, page.Items)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 25, page.Size)
	assert.Equal(t, int64(2), page.Total)
	repo.AssertExpectations(t)
}

func TestGetUsers_NormalizesPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		wantPage, wantSize int
	}{
		{name: "negative page", page: -1, size: 10, wantPage: 0, wantSize: 10},
		{name: "zero size", page: 2, size: 0, wantPage: 2, wantSize: domain.DefaultPageSize},
		{name: "size above max", page: 0, size: 1000, wantPage: 0, wantSize: domain.MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := setupTestService(t)
			ctx := context.Background()
			repo.On("List", ctx, tt.wantPage, tt.wantSize).Return([]domain.User{}, int64(0), nil)

			page, err := svc.GetUsers(ctx, tt.page, tt.size)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantSize, page.Size)
			repo.AssertExpectations(t)
		})
	}
}

func TestGetUsers_PageOutOfRange(t *testing.T) {
	svc, repo := setupTestService(t)

	_, err := svc.GetUsers(context.Background(), math.MaxInt, 25)

	var badFormat *apperrors.BadFormatError
	require.ErrorAs(t, err, &badFormat)
	assert.Equal(t, "page", badFormat.Field)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetUsers_RepositoryError(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	repo.On("List", ctx, 0, 25).Return([]domain.User(nil), int64(0), errors.New("db down"))

	_, err := svc.GetUsers(ctx, 0, 25)

	var internal *apperrors.InternalError
	assert.ErrorAs(t, err, &internal)
}

func TestGetUsersWithUsername_Success(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("ListByUsername", ctx, "alice", 0, 25).Return([]domain.User{*alice}, int64(1), nil)

	page, err := svc.GetUsersWithUsername(ctx, "alice", 0, 25)

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, alice.ID, page.Items[0].ID)
	repo.AssertExpectations(t)
}

func TestGetUsersWithUsername_FreeFormFilter(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	repo.On("ListByUsername", ctx, "ali ce'--", 0, 25).Return([]domain.User{}, int64(0), nil)

	page, err := svc.GetUsersWithUsername(ctx, "ali ce'--", 0, 25)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
	repo.AssertExpectations(t)
}

func TestGetUsersWithUsername_FilterTooLong(t *testing.T) {
	svc, repo := setupTestService(t)

	_, err := svc.GetUsersWithUsername(context.Background(), strings.Repeat("a", 255), 0, 25)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	repo.AssertNotCalled(t, "ListByUsername", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ==================== CREATE USER ====================

func TestCreateUser_Success(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	req := CreateUserRequest{Username: "alice", Email: "alice@example.com", FirstName: "Alice"}

	repo.On("GetByUsername", ctx, "alice").Return(nil, nil)
	repo.On("GetByEmail", ctx, "alice@example.com").Return(nil, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID != uuid.Nil && u.Username == req.Username && u.Email == req.Email && u.FirstName == "Alice"
	})).Return(nil)

	u, err := svc.CreateUser(ctx, req)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "alice", u.Username)
	repo.AssertExpectations(t)
}

func TestCreateUser_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  CreateUserRequest
		want []string
	}{
		{
			name: "missing fields",
			req:  CreateUserRequest{},
			want: []string{"Username is required", "Email is required"},
		},
		{
			name: "short username",
			req:  CreateUserRequest{Username: "al", Email: "al@example.com"},
			want: []string{"Username must be at least 3 characters"},
		},
		{
			name: "username with spaces",
			req:  CreateUserRequest{Username: "al ice", Email: "al@example.com"},
			want: []string{"Username may only contain"},
		},
		{
			name: "invalid email",
			req:  CreateUserRequest{Username: "alice", Email: "not-an-email"},
			want: []string{"Email must be a valid email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := setupTestService(t)

			u, err := svc.CreateUser(context.Background(), tt.req)

			assert.Nil(t, u)
			var validationErr *apperrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			for _, msg := range tt.want {
				assert.Contains(t, err.Error(), msg)
			}
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUser_UsernameTaken(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(newUser("alice"), nil)

	u, err := svc.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "new@example.com"})

	assert.Nil(t, u)
	var exists *apperrors.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "username", exists.Resource)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUser_EmailTaken(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(nil, nil)
	repo.On("GetByEmail", ctx, "bob@example.com").Return(newUser("bob"), nil)

	_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "bob@example.com"})

	var exists *apperrors.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "email", exists.Resource)
}

func TestCreateUser_RepositoryError(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(nil, nil)
	repo.On("GetByEmail", ctx, "alice@example.com").Return(nil, nil)
	repo.On("Create", ctx, mock.Anything).Return(errors.New("insert failed"))

	_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "alice@example.com"})

	var internal *apperrors.InternalError
	assert.ErrorAs(t, err, &internal)
}

func TestCreateUser_ConcurrentDuplicate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(nil, nil)
	repo.On("GetByEmail", ctx, "alice@example.com").Return(nil, nil)
	repo.On("Create", ctx, mock.Anything).Return(apperrors.NewAlreadyExistsError("user", "username or email already exists"))

	_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "alice", Email: "alice@example.com"})

	var exists *apperrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)
	var internal *apperrors.InternalError
	assert.False(t, errors.As(err, &internal))
}

// ==================== GET USER ====================

func TestGetUserByID_Success(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)

	u, err := svc.GetUserByID(ctx, alice.ID)

	require.NoError(t, err)
	assert.Equal(t, alice, u)
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	id := uuid.New()
	repo.On("GetByID", ctx, id).Return(nil, apperrors.NewNotFoundError("user", ""))

	u, err := svc.GetUserByID(ctx, id)

	assert.Nil(t, u)
	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetUserByID_RepositoryError(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	id := uuid.New()
	repo.On("GetByID", ctx, id).Return(nil, errors.New("db down"))

	_, err := svc.GetUserByID(ctx, id)

	var internal *apperrors.InternalError
	assert.ErrorAs(t, err, &internal)
}

func TestGetUserByUsername(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByUsername", ctx, "alice").Return(alice, nil)
	repo.On("GetByUsername", ctx, "nobody").Return(nil, nil)

	u, err := svc.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, u)

	u, err = svc.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestGetUserByRegEmail(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByEmail", ctx, "alice@example.com").Return(alice, nil)

	u, err := svc.GetUserByRegEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice, u)

	obrien := newUser("obrien")
	obrien.Email = "o'brien@example.com"
	repo.On("GetByEmail", ctx, "o'brien@example.com").Return(obrien, nil)

	u, err = svc.GetUserByRegEmail(ctx, "o'brien@example.com")
	require.NoError(t, err)
	assert.Equal(t, obrien, u)

	for _, email := range []string{"alice@example.com' OR 1=1", "not-an-email", strings.Repeat("a", 250) + "@example.com"} {
		_, err = svc.GetUserByRegEmail(ctx, email)
		var validationErr *apperrors.ValidationError
		assert.ErrorAs(t, err, &validationErr, email)
	}
	repo.AssertNumberOfCalls(t, "GetByEmail", 2)
}

// ==================== UPDATE USER ====================

func TestUpdateUserByID_PartialUpdate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	alice.FirstName = "Alice"
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == alice.ID && u.Username == "alice" && u.FirstName == "Alicia" && u.Email == alice.Email
	})).Return(nil)

	u, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{FirstName: "Alicia"})

	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.FirstName)
	assert.Equal(t, "Alice", alice.FirstName, "source entity must not be mutated")
	repo.AssertExpectations(t)
}

func TestUpdateUserByID_ChangeUsername(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByUsername", ctx, "alicia").Return(nil, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alicia"
	})).Return(nil)

	u, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{Username: "alicia"})

	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)
	repo.AssertExpectations(t)
}

func TestUpdateUserByID_EmailTakenByOther(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByEmail", ctx, "bob@example.com").Return(newUser("bob"), nil)

	_, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{Email: "bob@example.com"})

	var exists *apperrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateUserByID_ConcurrentDuplicate(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByEmail", ctx, "bob@example.com").Return(nil, nil)
	repo.On("Update", ctx, mock.Anything).Return(apperrors.NewAlreadyExistsError("user", "username or email already exists"))

	_, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{Email: "bob@example.com"})

	var exists *apperrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)
}

func TestUpdateUserByID_SameValuesSkipUniquenessCheck(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	_, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{Username: "alice", Email: alice.Email})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestUpdateUserByID_EmptyRequest(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)

	u, err := svc.UpdateUserByID(ctx, alice.ID, UpdateUserRequest{})

	require.NoError(t, err)
	assert.Equal(t, alice, u)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateUserByID_NotFound(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	id := uuid.New()
	repo.On("GetByID", ctx, id).Return(nil, apperrors.NewNotFoundError("user", ""))

	_, err := svc.UpdateUserByID(ctx, id, UpdateUserRequest{FirstName: "X"})

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdateUserByID_ValidationError(t *testing.T) {
	svc, repo := setupTestService(t)

	_, err := svc.UpdateUserByID(context.Background(), uuid.New(), UpdateUserRequest{Email: "invalid"})

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// ==================== DELETE USER ====================

func TestDeleteUserByID(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	id := uuid.New()
	missing := uuid.New()
	repo.On("Delete", ctx, id).Return(nil)
	repo.On("Delete", ctx, missing).Return(apperrors.NewNotFoundError("user", ""))

	assert.NoError(t, svc.DeleteUserByID(ctx, id))

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, svc.DeleteUserByID(ctx, missing), &notFound)
}

// ==================== FRIENDS ====================

func TestGetFriendsOfUserByID_Success(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	friends := []domain.User{*newUser("bob"), *newUser("carol")}
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("ListFriends", ctx, alice.ID, 1, 2).Return(friends, int64(4), nil)

	page, err := svc.GetFriendsOfUserByID(ctx, alice.ID, 1, 2)

	require.NoError(t, err)
	assert.Equal(t, friends, page.Items)
	assert.Equal(t, 2, page.TotalPages())
	repo.AssertExpectations(t)
}

func TestGetFriendsOfUserByID_UserNotFound(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	id := uuid.New()
	repo.On("GetByID", ctx, id).Return(nil, apperrors.NewNotFoundError("user", ""))

	_, err := svc.GetFriendsOfUserByID(ctx, id, 0, 25)

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	repo.AssertNotCalled(t, "ListFriends", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFriend(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice, bob := newUser("alice"), newUser("bob")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByID", ctx, bob.ID).Return(bob, nil)
	repo.On("AddFriendship", ctx, alice.ID, bob.ID).Return(nil)

	require.NoError(t, svc.AddFriend(ctx, alice.ID, bob.ID))
	repo.AssertExpectations(t)
}

func TestAddFriend_Self(t *testing.T) {
	svc, repo := setupTestService(t)
	id := uuid.New()

	err := svc.AddFriend(context.Background(), id, id)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	repo.AssertNotCalled(t, "AddFriendship", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFriend_FriendNotFound(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice := newUser("alice")
	missing := uuid.New()
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByID", ctx, missing).Return(nil, apperrors.NewNotFoundError("user", ""))

	err := svc.AddFriend(ctx, alice.ID, missing)

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRemoveFriend(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	alice, bob := newUser("alice"), newUser("bob")
	repo.On("GetByID", ctx, alice.ID).Return(alice, nil)
	repo.On("GetByID", ctx, bob.ID).Return(bob, nil)
	repo.On("RemoveFriendship", ctx, alice.ID, bob.ID).Return(nil)

	require.NoError(t, svc.RemoveFriend(ctx, alice.ID, bob.ID))
	repo.AssertExpectations(t)
}

// ==================== VALIDATION HELPER ====================

func TestFormatValidationError(t *testing.T) {
	validate := validator.New()

	type TestStruct struct {
		Name  string `validate:"required,min=3"`
		Email string `validate:"required,email"`
	}

	formatted := formatValidationError(validate.Struct(&TestStruct{}))

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, formatted, &validationErr)
	assert.Contains(t, formatted.Error(), "validation failed")
	assert.Contains(t, formatted.Error(), "Name is required")
	assert.Contains(t, formatted.Error(), "Email is required")
}

func TestFormatValidationError_NonValidationError(t *testing.T) {
	originalErr := errors.New("some other error")
	assert.Equal(t, originalErr, formatValidationError(originalErr))
}
