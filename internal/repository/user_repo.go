package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// UserRepository is the credential store. Update and Delete report the number
// of rows affected instead of failing on zero rows; a zero count is the
// "not found" signal and callers decide what it means for them.
type UserRepository interface {
	CreateShellUser(ctx context.Context, email string, roles model.RoleSet) (uuid.UUID, error)
	Register(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsernameAndEmail(ctx context.Context, username, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) (int64, error)
	Delete(ctx context.Context, username, email string) (int64, error)
	Exists(ctx context.Context, username string) (bool, error)
	FindAll(ctx context.Context) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// CreateShellUser inserts the blank row an invitation starts from: email and
// role flags set, everything else empty, otp_pending on. The generated key is
// returned so the invitation flow can bind an OTP to it; a missing key after
// a successful insert is a storage invariant violation.
func (r *userRepository) CreateShellUser(ctx context.Context, email string, roles model.RoleSet) (uuid.UUID, error) {
	user := &model.User{
		Email:      email,
		OTPPending: true,
	}
	user.SetRoles(roles)

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return uuid.Nil, translateStorageError(err)
	}
	if user.ID == uuid.Nil {
		return uuid.Nil, apperror.New(apperror.ErrStorageInvariant, "shell user row has no generated key")
	}
	return user.ID, nil
}

func (r *userRepository) Register(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateStorageError(err)
	}
	return nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameAndEmail(ctx context.Context, username, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("username = ? AND email = ?", username, email).
		First(&user).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").
		Updates(user)
	if res.Error != nil {
		return 0, translateStorageError(res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes the user matched by username and email together with its
// group permission rows. Referential cleanup is mandatory, so both deletes
// run inside one transaction.
func (r *userRepository) Delete(ctx context.Context, username, email string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("username = ? AND email = ?", username, email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.GroupPermission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, "id = ?", user.ID)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translateStorageError(err)
	}
	return affected, nil
}

func (r *userRepository) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).Count(&count).Error; err != nil {
		return false, translateStorageError(err)
	}
	return count > 0, nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, translateStorageError(err)
	}
	return count, nil
}

// translateStorageError maps driver errors into the shared taxonomy at the
// component boundary.
func translateStorageError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateKey, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.ErrNotFound
	default:
		return err
	}
}
