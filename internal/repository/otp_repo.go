package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/model"
)

// OTPRepository persists one-time codes. Rows are only ever inserted and
// deleted; a code is never mutated after issue.
type OTPRepository interface {
	Create(ctx context.Context, otp *model.OneTimePassword) error
	FindByCode(ctx context.Context, code string) (*model.OneTimePassword, error)
	DeleteByID(ctx context.Context, id uint) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	FindAll(ctx context.Context) ([]*model.OneTimePassword, error)
	WithTx(tx *gorm.DB) OTPRepository
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) WithTx(tx *gorm.DB) OTPRepository {
	return &otpRepository{db: tx}
}

func (r *otpRepository) Create(ctx context.Context, otp *model.OneTimePassword) error {
	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		return translateStorageError(err)
	}
	return nil
}

// FindByCode returns the most recently issued row for code, or ErrNotFound.
// Codes are not unique across time, so the newest row wins.
func (r *otpRepository) FindByCode(ctx context.Context, code string) (*model.OneTimePassword, error) {
	var otp model.OneTimePassword
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, translateStorageError(err)
		}
		return nil, err
	}
	return &otp, nil
}

// DeleteByID removes exactly one issued row. Deleting by code would also
// destroy any colliding live code from another invitation.
func (r *otpRepository) DeleteByID(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.OneTimePassword{}, "id = ?", id)
	if res.Error != nil {
		return 0, translateStorageError(res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteExpired purges rows whose expiry is before now. Rows with unparsable
// timestamps are purged as well; they are unusable either way.
func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	rows, err := r.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	var purged int64
	for _, otp := range rows {
		expiry, err := otp.Expiry()
		if err == nil && !now.After(expiry) {
			continue
		}
		res := r.db.WithContext(ctx).Delete(&model.OneTimePassword{}, "id = ?", otp.ID)
		if res.Error != nil {
			return purged, translateStorageError(res.Error)
		}
		purged += res.RowsAffected
	}
	return purged, nil
}

func (r *otpRepository) FindAll(ctx context.Context) ([]*model.OneTimePassword, error) {
	var rows []*model.OneTimePassword
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return rows, nil
}
