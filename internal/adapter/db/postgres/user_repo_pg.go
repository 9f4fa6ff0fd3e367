package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-user-service/internal/domain/user"
	apperrors "social-user-service/pkg/errors"
)

// UserRepoPG implements the user Repository interface using GORM.
// It is used with PostgreSQL in production and SQLite in tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Username  string `gorm:"type:varchar(32);not null;uniqueIndex"`
	Email     string `gorm:"type:varchar(254);not null;uniqueIndex"`
	FirstName string `gorm:"type:varchar(100)"`
	LastName  string `gorm:"type:varchar(100)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// FriendshipSchema stores one direction of a friendship.
// Every friendship is stored as two rows, one per direction.
type FriendshipSchema struct {
	UserID    string `gorm:"type:varchar(36);primaryKey"`
	FriendID  string `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time
}

// TableName specifies the table name for the FriendshipSchema model.
func (FriendshipSchema) TableName() string {
	return "friendships"
}

// AutoMigrate creates or updates the tables used by the repository.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &FriendshipSchema{})
}

func toSchema(u *user.User) UserSchema {
	return UserSchema{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toDomain(m UserSchema) (user.User, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return user.User{}, fmt.Errorf("corrupt user id %q: %w", m.ID, err)
	}
	return user.User{
		ID:        id,
		Username:  m.Username,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func toDomainList(models []UserSchema) ([]user.User, error) {
	users := make([]user.User, 0, len(models))
	for _, m := range models {
		u, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Create inserts a new user into the database and fills in its timestamps.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := toSchema(u)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate user in db", zap.String("username", u.Username), zap.String("email", u.Email))
			return errDuplicateUser()
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("username", u.Username))
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt

	r.log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// errDuplicateUser reports a unique index violation on username or email.
func errDuplicateUser() error {
	return apperrors.NewAlreadyExistsError("user", "username or email already exists")
}

// Update saves all fields of an existing user.
func (r *UserRepoPG) Update(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	result := r.db.WithContext(ctx).Model(&UserSchema{}).
		Where("id = ?", u.ID.String()).
		Updates(map[string]any{
			"username":   u.Username,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"updated_at": time.Now(),
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		r.log.Warn("duplicate user in db", zap.String("id", u.ID.String()))
		return errDuplicateUser()
	}
	if result.Error != nil {
		r.log.Error("failed to update user in db", zap.Error(result.Error), zap.String("id", u.ID.String()))
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%s", u.ID))
	}

	r.log.Info("user updated in db", zap.String("id", u.ID.String()))
	return nil
}

// Delete removes a user and every friendship that references it.
func (r *UserRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	key := id.String()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? OR friend_id = ?", key, key).Delete(&FriendshipSchema{}).Error; err != nil {
			return fmt.Errorf("failed to delete friendships: %w", err)
		}

		result := tx.Where("id = ?", key).Delete(&UserSchema{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%s", key))
		}
		return nil
	})
	if err != nil {
		var notFound *apperrors.NotFoundError
		if !errors.As(err, &notFound) {
			r.log.Error("failed to delete user in db", zap.Error(err), zap.String("id", key))
		}
		return err
	}

	r.log.Info("user deleted in db", zap.String("id", key))
	return nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id.String()))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%s", id))
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u, err := toDomain(model)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername retrieves a user by username. It returns nil when none exists.
func (r *UserRepoPG) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByEmail retrieves a user by email address. It returns nil when none exists.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepoPG) getBy(ctx context.Context, column, value string) (*user.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String(column, value))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String(column, value))
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	u, err := toDomain(model)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List retrieves one page of users ordered by username.
func (r *UserRepoPG) List(ctx context.Context, page, size int) ([]user.User, int64, error) {
	return r.listUsers(ctx, r.db.WithContext(ctx).Model(&UserSchema{}), page, size)
}

// ListByUsername retrieves one page of users whose username matches exactly.
func (r *UserRepoPG) ListByUsername(ctx context.Context, username string, page, size int) ([]user.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&UserSchema{}).Where("username = ?", username)
	return r.listUsers(ctx, q, page, size)
}

// ListFriends retrieves one page of the friends of a user ordered by username.
func (r *UserRepoPG) ListFriends(ctx context.Context, id uuid.UUID, page, size int) ([]user.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&UserSchema{}).
		Joins("JOIN friendships ON friendships.friend_id = users.id").
		Where("friendships.user_id = ?", id.String())
	return r.listUsers(ctx, q, page, size)
}

func (r *UserRepoPG) listUsers(ctx context.Context, q *gorm.DB, page, size int) ([]user.User, int64, error) {
	offset, err := user.Offset(page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("page %d with size %d: %w", page, size, err)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		r.log.Error("failed to count users", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserSchema
	err = q.Session(&gorm.Session{}).
		Select("users.*").
		Order("users.username ASC").
		Offset(offset).
		Limit(size).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.Int("page", page), zap.Int("size", size))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users, err := toDomainList(models)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// AddFriendship links two users in both directions. Existing links are kept.
func (r *UserRepoPG) AddFriendship(ctx context.Context, id, friendID uuid.UUID) error {
	rows := []FriendshipSchema{
		{UserID: id.String(), FriendID: friendID.String()},
		{UserID: friendID.String(), FriendID: id.String()},
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		r.log.Error("failed to add friendship", zap.Error(err), zap.String("id", id.String()), zap.String("friend_id", friendID.String()))
		return fmt.Errorf("failed to add friendship: %w", err)
	}

	r.log.Info("friendship added", zap.String("id", id.String()), zap.String("friend_id", friendID.String()))
	return nil
}

// RemoveFriendship unlinks two users in both directions.
func (r *UserRepoPG) RemoveFriendship(ctx context.Context, id, friendID uuid.UUID) error {
	a, b := id.String(), friendID.String()

	err := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&FriendshipSchema{}).Error
	if err != nil {
		r.log.Error("failed to remove friendship", zap.Error(err), zap.String("id", a), zap.String("friend_id", b))
		return fmt.Errorf("failed to remove friendship: %w", err)
	}

	r.log.Info("friendship removed", zap.String("id", a), zap.String("friend_id", b))
	return nil
}
