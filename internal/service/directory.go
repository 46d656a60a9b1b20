package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/dto"
	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// DirectoryService is the entry point for all identity operations. It
// composes the credential store and the OTP issuer; admin-only operations
// take the caller and check the admin capability instead of relying on a
// privileged subtype. Flows that touch both stores run inside a single
// transaction so a failure never commits partial state.
type DirectoryService struct {
	db    *gorm.DB
	users repository.UserRepository
	otps  *OTPService
	log   logging.Logger
}

func NewDirectoryService(db *gorm.DB, users repository.UserRepository, otps *OTPService, log logging.Logger) *DirectoryService {
	return &DirectoryService{db: db, users: users, otps: otps, log: log}
}

func (s *DirectoryService) requireAdmin(ctx context.Context, caller *model.User, op string) error {
	if caller == nil || !caller.Roles().Has(model.RoleAdmin) {
		s.log.Warn(ctx, "operation forbidden", "op", op)
		return apperror.New(apperror.ErrForbidden, op+" requires the admin role")
	}
	return nil
}

// Invite creates a shell user for the target email and issues an OTP bound to
// the requested role subset. The code is returned for out-of-band delivery.
// Concurrent invites for the same address collapse on the unique email
// constraint and surface as ErrDuplicateKey.
func (s *DirectoryService) Invite(ctx context.Context, caller *model.User, input dto.InviteInput) (string, error) {
	if err := s.requireAdmin(ctx, caller, "invite"); err != nil {
		return "", err
	}
	if err := dto.Validate(input); err != nil {
		return "", err
	}
	roles, err := model.ParseRoleSet(input.Roles)
	if err != nil {
		return "", apperror.New(apperror.ErrInvalidInput, err.Error())
	}

	var code string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := s.users.WithTx(tx).CreateShellUser(ctx, input.Email, roles)
		if err != nil {
			return err
		}
		code, err = s.otps.withTx(tx).Issue(ctx, roles)
		if err != nil {
			return err
		}
		s.log.Info(ctx, "invited user", "user_id", userID, "roles", roles.String())
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// CompleteRegistration redeems a valid OTP for credentials: the shell user is
// populated with the chosen username and password and the OTP's role subset,
// and the code is consumed. A self-registration without a prior shell row
// creates the account outright. The whole flow is one transaction; if the
// code vanishes before Redeem (a concurrent redemption), the account write
// rolls back with it and no roles are granted twice.
func (s *DirectoryService) CompleteRegistration(ctx context.Context, input dto.RegisterInput) (*model.User, error) {
	if err := dto.Validate(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		otps := s.otps.withTx(tx)

		otp, err := otps.Lookup(ctx, input.Code)
		if err != nil {
			return err
		}

		user, err = users.FindByEmail(ctx, input.Email)

		// The chosen username must be free, except when the redeeming
		// account already owns it (password reset keeps the username).
		taken, terr := users.Exists(ctx, input.Username)
		if terr != nil {
			return terr
		}
		if taken && (err != nil || user.Username != input.Username) {
			return apperror.New(apperror.ErrDuplicateKey, "username already taken")
		}

		switch {
		case err == nil:
			if !user.OTPPending {
				return apperror.New(apperror.ErrDuplicateKey, "account already active for this email")
			}
			user.Username = input.Username
			user.PasswordHash = string(hash)
			user.FirstName = input.FirstName
			user.MiddleName = input.MiddleName
			user.LastName = input.LastName
			user.PreferredName = input.PreferredName
			user.SetRoles(otp.Roles())
			user.OTPPending = false
			affected, err := users.Update(ctx, user)
			if err != nil {
				return err
			}
			if affected == 0 {
				return apperror.ErrNotFound
			}
		case errors.Is(err, apperror.ErrNotFound):
			user = &model.User{
				Username:      input.Username,
				Email:         input.Email,
				PasswordHash:  string(hash),
				FirstName:     input.FirstName,
				MiddleName:    input.MiddleName,
				LastName:      input.LastName,
				PreferredName: input.PreferredName,
			}
			user.SetRoles(otp.Roles())
			if err := users.Register(ctx, user); err != nil {
				return err
			}
		default:
			return err
		}

		return otps.Redeem(ctx, input.Code)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "registration completed", "user_id", user.ID, "roles", user.Roles().String())
	return user, nil
}

// Reset issues a fresh OTP carrying the user's current role subset. The
// existing credentials stay valid until the user redeems the code and sets a
// new password.
func (s *DirectoryService) Reset(ctx context.Context, caller *model.User, input dto.ResetInput) (string, error) {
	if err := s.requireAdmin(ctx, caller, "reset"); err != nil {
		return "", err
	}
	if err := dto.Validate(input); err != nil {
		return "", err
	}

	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)

		user, err := users.FindByUsernameAndEmail(ctx, input.Username, input.Email)
		if err != nil {
			return err
		}

		code, err = s.otps.withTx(tx).Issue(ctx, user.Roles())
		if err != nil {
			return err
		}

		user.OTPPending = true
		if _, err := users.Update(ctx, user); err != nil {
			return err
		}
		s.log.Info(ctx, "issued reset code", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Login checks the password and returns the full user record. Unknown
// usernames and wrong passwords both come back as ErrNotFound; the ambiguity
// is kept on purpose so the API does not reveal which usernames exist.
func (s *DirectoryService) Login(ctx context.Context, input dto.LoginInput) (*model.User, error) {
	if err := dto.Validate(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		// Shell rows have no usable password until OTP redemption.
		return nil, apperror.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.ErrNotFound
	}
	return user, nil
}

// UpdateProfile saves profile fields. A vanished row is logged and reported
// as ErrNotFound, never a crash.
func (s *DirectoryService) UpdateProfile(ctx context.Context, user *model.User) error {
	affected, err := s.users.Update(ctx, user)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Warn(ctx, "update affected no rows", "user_id", user.ID)
		return apperror.ErrNotFound
	}
	return nil
}

// DeleteUser removes the account and its group permissions.
func (s *DirectoryService) DeleteUser(ctx context.Context, caller *model.User, username, email string) error {
	if err := s.requireAdmin(ctx, caller, "delete user"); err != nil {
		return err
	}
	affected, err := s.users.Delete(ctx, username, email)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Warn(ctx, "delete affected no rows", "username", username)
		return apperror.ErrNotFound
	}
	s.log.Info(ctx, "deleted user", "username", username)
	return nil
}

// ListUsers returns every account, admin only.
func (s *DirectoryService) ListUsers(ctx context.Context, caller *model.User) ([]*model.User, error) {
	if err := s.requireAdmin(ctx, caller, "list users"); err != nil {
		return nil, err
	}
	return s.users.FindAll(ctx)
}
