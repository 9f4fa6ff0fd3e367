package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "social-user-service/internal/domain/user"
	"social-user-service/internal/usecase/user"
	apperrors "social-user-service/pkg/errors"
	"social-user-service/pkg/logger"
)

// BaseURI is the path prefix of every user endpoint.
const BaseURI = "/api/social"

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UserRequest represents the HTTP request body for creating a user
type UserRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=32"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"omitempty,max=100"`
	LastName  string `json:"last_name" binding:"omitempty,max=100"`
}

// UpdateUserRequest represents the HTTP request body for a partial user update
type UpdateUserRequest struct {
	Username  string `json:"username" binding:"omitempty,min=3,max=32"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"omitempty,max=100"`
	LastName  string `json:"last_name" binding:"omitempty,max=100"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse copies the visible fields of u.
func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PageResponse represents one page of a paginated listing
type PageResponse[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

func newUserPageResponse(p domain.Page[domain.User]) PageResponse[UserResponse] {
	mapped := domain.MapPage(p, NewUserResponse)
	return PageResponse[UserResponse]{
		Content:       mapped.Items,
		Page:          mapped.Page,
		Size:          mapped.Size,
		TotalElements: mapped.Total,
		TotalPages:    mapped.TotalPages(),
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, size, err := parsePagination(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	var result domain.Page[domain.User]
	if username, ok := c.GetQuery("username"); ok {
		h.log.Debug("Gin ListUsers request", zap.String("username", username), zap.Int("page", page), zap.Int("size", size))
		result, err = h.uc.GetUsersWithUsername(c.Request.Context(), username, page, size)
	} else {
		h.log.Debug("Gin ListUsers request", zap.Int("page", page), zap.Int("size", size))
		result, err = h.uc.GetUsers(c.Request.Context(), page, size)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserPageResponse(result))
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	u, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Location", BaseURI+"/users/"+u.ID.String())
	c.JSON(http.StatusCreated, NewUserResponse(*u))
}

// GetUser handles GET /users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseUserID(c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	u, err := h.uc.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(*u))
}

// GetUserBy handles GET /users/by.
// A non-empty username wins over email; with neither the response is an empty 400.
func (h *UserHandler) GetUserBy(c *gin.Context) {
	username := c.Query("username")
	email := c.Query("email")

	var (
		u   *domain.User
		err error
	)
	switch {
	case username != "":
		if email != "" {
			h.log.Debug("both username and email given, using username", zap.String("username", username))
		}
		u, err = h.uc.GetUserByUsername(c.Request.Context(), username)
	case email != "":
		u, err = h.uc.GetUserByRegEmail(c.Request.Context(), email)
	default:
		c.Status(http.StatusBadRequest)
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	if u == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(*u))
}

// UpdateUser handles PATCH /users/:userId
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := parseUserID(c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid update user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	u, err := h.uc.UpdateUserByID(c.Request.Context(), id, user.UpdateUserRequest{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(*u))
}

// DeleteUser handles DELETE /users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := parseUserID(c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := h.uc.DeleteUserByID(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListFriends handles GET /users/:userId/friends
func (h *UserHandler) ListFriends(c *gin.Context) {
	id, err := parseUserID(c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	page, size, err := parsePagination(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.uc.GetFriendsOfUserByID(c.Request.Context(), id, page, size)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserPageResponse(result))
}

// AddFriend handles PUT /users/:userId/friends/:friendId
func (h *UserHandler) AddFriend(c *gin.Context) {
	id, friendID, err := parseFriendship(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := h.uc.AddFriend(c.Request.Context(), id, friendID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveFriend handles DELETE /users/:userId/friends/:friendId
func (h *UserHandler) RemoveFriend(c *gin.Context) {
	id, friendID, err := parseFriendship(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := h.uc.RemoveFriend(c.Request.Context(), id, friendID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewBadFormatError("user id", raw, err)
	}
	return id, nil
}

func parseFriendship(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	id, err := parseUserID(c.Param("userId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	friendID, err := uuid.Parse(c.Param("friendId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperrors.NewBadFormatError("friend id", c.Param("friendId"), err)
	}
	return id, friendID, nil
}

// parsePagination reads page and size, defaulting to page 0 and size 25.
// A page whose first record lies beyond math.MaxInt is rejected.
func parsePagination(c *gin.Context) (int, int, error) {
	rawPage := c.DefaultQuery("page", strconv.Itoa(domain.DefaultPage))
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 0 {
		return 0, 0, apperrors.NewBadFormatError("page", rawPage, err)
	}

	rawSize := c.DefaultQuery("size", strconv.Itoa(domain.DefaultPageSize))
	size, err := strconv.Atoi(rawSize)
	if err != nil || size < 1 {
		return 0, 0, apperrors.NewBadFormatError("size", rawSize, err)
	}

	if _, err := domain.Offset(page, size); err != nil {
		return 0, 0, apperrors.NewBadFormatError("page", rawPage, err)
	}

	return page, size, nil
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log).With(
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
	)

	var (
		validationErr *apperrors.ValidationError
		badFormatErr  *apperrors.BadFormatError
		notFoundErr   *apperrors.NotFoundError
		existsErr     *apperrors.AlreadyExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn("request rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: validationErr.Error()})
	case errors.As(err, &badFormatErr):
		log.Warn("request rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_format", Message: badFormatErr.Error()})
	case errors.As(err, &notFoundErr):
		log.Info("resource not found", zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: notFoundErr.Error()})
	case errors.As(err, &existsErr):
		log.Warn("resource conflict", zap.Error(err))
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already_exists", Message: existsErr.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
