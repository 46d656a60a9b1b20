package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

const (
	otpLength   = 6
	otpValidity = 5 * time.Minute
)

// OTPService issues and validates one-time codes. A code moves from issued to
// either redeemed or expired and both are terminal; a fresh code is always
// generated instead of reissuing.
type OTPService struct {
	repo repository.OTPRepository
	log  logging.Logger
	now  func() time.Time
}

func NewOTPService(repo repository.OTPRepository, log logging.Logger) *OTPService {
	return &OTPService{repo: repo, log: log, now: time.Now}
}

// withTx rebinds the service to a transaction-scoped store.
func (s *OTPService) withTx(tx *gorm.DB) *OTPService {
	return &OTPService{repo: s.repo.WithTx(tx), log: s.log, now: s.now}
}

// Issue generates a six-digit code granting roles on redemption, valid for
// five minutes. Each digit is sampled independently; collisions with other
// live codes are possible and deliberately not checked.
func (s *OTPService) Issue(ctx context.Context, roles model.RoleSet) (string, error) {
	if roles.IsEmpty() {
		return "", apperror.New(apperror.ErrInvalidInput, "otp role set must not be empty")
	}

	code, err := randomCode(otpLength)
	if err != nil {
		return "", err
	}

	otp := &model.OneTimePassword{Code: code}
	otp.SetRoles(roles)
	otp.SetExpiry(s.now().Add(otpValidity))

	if err := s.repo.Create(ctx, otp); err != nil {
		return "", err
	}
	s.log.Info(ctx, "issued otp", "roles", roles.String())
	return code, nil
}

// Validate reports whether code identifies a live row. It never mutates
// state; redemption is the caller's explicit follow-up via Redeem.
func (s *OTPService) Validate(ctx context.Context, code string) (bool, error) {
	otp, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	expiry, err := otp.Expiry()
	if err != nil {
		// Corrupt rows are expired, not fatal.
		s.log.Warn(ctx, "otp record corrupt, treating as expired", "code", code, "error", err)
		return false, nil
	}
	return expiry.After(s.now()), nil
}

// IsExpired reports whether the code can no longer be redeemed. A missing row
// counts as expired: the code was either redeemed or purged and is unusable
// either way. A corrupt expiry is reported alongside the expired verdict.
func (s *OTPService) IsExpired(ctx context.Context, code string) (bool, error) {
	otp, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return true, nil
		}
		return true, err
	}
	expiry, err := otp.Expiry()
	if err != nil {
		return true, err
	}
	return s.now().After(expiry), nil
}

// Lookup returns the live row for code, or ErrNotFound when the code is
// unknown, expired or corrupt.
func (s *OTPService) Lookup(ctx context.Context, code string) (*model.OneTimePassword, error) {
	otp, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	expiry, err := otp.Expiry()
	if err != nil {
		s.log.Warn(ctx, "otp record corrupt, treating as expired", "code", code, "error", err)
		return nil, apperror.ErrNotFound
	}
	if !expiry.After(s.now()) {
		return nil, apperror.ErrNotFound
	}
	return otp, nil
}

// Redeem consumes the newest row for the code. Only that single row is
// deleted, so a colliding live code from another invitation survives.
// Redeeming twice fails with ErrNotFound.
func (s *OTPService) Redeem(ctx context.Context, code string) error {
	otp, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteByID(ctx, otp.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// PurgeExpired removes dead rows; corrupt rows go with them.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func randomCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
