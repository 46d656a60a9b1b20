package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/dto"
	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

func adminCaller() *model.User {
	return &model.User{Username: "root", Email: "root@x.com", IsAdmin: true}
}

func TestInviteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	student := &model.User{Username: "s", Email: "s@x.com", IsStudent: true}
	_, err := env.directory.Invite(context.Background(), student, dto.InviteInput{
		Email: "a@x.com",
		Roles: []string{"instructor"},
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestInviteAndCompleteRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{
		Email: "a@x.com",
		Roles: []string{"instructor", "student"},
	})
	require.NoError(t, err)

	user, err := env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:      code,
		Email:     "a@x.com",
		Username:  "casey",
		Password:  "hunter2hunter2",
		FirstName: "Casey",
		LastName:  "Nguyen",
	})
	require.NoError(t, err)
	assert.False(t, user.OTPPending)

	// The role subset granted at invite time round-trips through the store.
	found, err := env.users.FindByUsername(ctx, "casey")
	require.NoError(t, err)
	assert.Equal(t, model.NewRoleSet(model.RoleInstructor, model.RoleStudent), found.Roles())

	// Redeemed codes are gone; a second redemption never re-grants roles.
	_, err = env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    "b@x.com",
		Username: "drew",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestInviteDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	require.NoError(t, err)

	_, err = env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	assert.ErrorIs(t, err, apperror.ErrDuplicateKey)
}

func TestExpiredInvitationRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{
		Email: "a@x.com",
		Roles: []string{"instructor"},
	})
	require.NoError(t, err)

	env.clock.Advance(5*time.Minute + time.Second)

	ok, err := env.otp.Validate(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    "a@x.com",
		Username: "casey",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLoginDoesNotDistinguishFailureModes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerActiveUser(t, env, "casey", "a@x.com", "hunter2hunter2", model.NewRoleSet(model.RoleStudent))

	_, wrongPassword := env.directory.Login(ctx, dto.LoginInput{Username: "casey", Password: "nope-nope"})
	_, unknownUser := env.directory.Login(ctx, dto.LoginInput{Username: "ghost", Password: "nope-nope"})

	assert.ErrorIs(t, wrongPassword, apperror.ErrNotFound)
	assert.ErrorIs(t, unknownUser, apperror.ErrNotFound)
}

func TestLoginReturnsUserRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerActiveUser(t, env, "casey", "a@x.com", "hunter2hunter2", model.NewRoleSet(model.RoleAdmin, model.RoleStudent))

	user, err := env.directory.Login(ctx, dto.LoginInput{Username: "casey", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, model.NewRoleSet(model.RoleAdmin, model.RoleStudent), user.Roles())
	assert.False(t, user.OTPPending)
}

func TestShellUserCannotLogIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	require.NoError(t, err)

	_, err = env.directory.Login(ctx, dto.LoginInput{Username: "", Password: "anything"})
	assert.Error(t, err)
}

func TestResetKeepsRolesAndCredentialsUntilRedemption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerActiveUser(t, env, "casey", "a@x.com", "hunter2hunter2", model.NewRoleSet(model.RoleInstructor))

	code, err := env.directory.Reset(ctx, adminCaller(), dto.ResetInput{Username: "casey", Email: "a@x.com"})
	require.NoError(t, err)

	// Old password still works before the code is redeemed.
	_, err = env.directory.Login(ctx, dto.LoginInput{Username: "casey", Password: "hunter2hunter2"})
	require.NoError(t, err)

	user, err := env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    "a@x.com",
		Username: "casey",
		Password: "new-password-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.NewRoleSet(model.RoleInstructor), user.Roles())

	_, err = env.directory.Login(ctx, dto.LoginInput{Username: "casey", Password: "new-password-1"})
	require.NoError(t, err)
}

func TestDeleteUserRequiresAdminAndCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerActiveUser(t, env, "casey", "a@x.com", "hunter2hunter2", model.NewRoleSet(model.RoleStudent))
	user, err := env.users.FindByUsername(ctx, "casey")
	require.NoError(t, err)

	require.NoError(t, env.groups.Create(ctx, &model.Group{Name: "basics"}))
	require.NoError(t, env.groups.Grant(ctx, user.ID, "basics", model.AccessViewer))

	err = env.directory.DeleteUser(ctx, user, "casey", "a@x.com")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, env.directory.DeleteUser(ctx, adminCaller(), "casey", "a@x.com"))

	perms, err := env.groups.PermissionsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	assert.ErrorIs(t, env.directory.DeleteUser(ctx, adminCaller(), "casey", "a@x.com"), apperror.ErrNotFound)
}

// brokenOTPStore wraps a real store and fails selected operations so the
// surrounding transaction is forced to roll back.
type brokenOTPStore struct {
	repository.OTPRepository
	failCreate bool
	failDelete bool
}

func (s *brokenOTPStore) Create(ctx context.Context, otp *model.OneTimePassword) error {
	if s.failCreate {
		return errors.New("otp store unavailable")
	}
	return s.OTPRepository.Create(ctx, otp)
}

func (s *brokenOTPStore) DeleteByID(ctx context.Context, id uint) (int64, error) {
	if s.failDelete {
		return 0, errors.New("otp store unavailable")
	}
	return s.OTPRepository.DeleteByID(ctx, id)
}

func (s *brokenOTPStore) WithTx(tx *gorm.DB) repository.OTPRepository {
	return &brokenOTPStore{
		OTPRepository: s.OTPRepository.WithTx(tx),
		failCreate:    s.failCreate,
		failDelete:    s.failDelete,
	}
}

func TestInviteRollsBackShellUserWhenCodeFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	broken := &brokenOTPStore{OTPRepository: repository.NewOTPRepository(env.db), failCreate: true}
	directory := NewDirectoryService(env.db, env.users, NewOTPService(broken, logging.NewDefault()), logging.NewDefault())

	_, err := directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	require.Error(t, err)

	// The shell row rolled back with the failed code issue, so the email is
	// not permanently occupied by a codeless account.
	_, err = env.users.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	require.NoError(t, err)
}

func TestCompleteRegistrationRollsBackWhenRedeemFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: "a@x.com", Roles: []string{"student"}})
	require.NoError(t, err)

	broken := &brokenOTPStore{OTPRepository: repository.NewOTPRepository(env.db), failDelete: true}
	directory := NewDirectoryService(env.db, env.users, NewOTPService(broken, logging.NewDefault()), logging.NewDefault())

	_, err = directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    "a@x.com",
		Username: "casey",
		Password: "hunter2hunter2",
	})
	require.Error(t, err)

	// The account write rolled back with the failed redemption; the shell
	// row is untouched and the code stays redeemable.
	user, err := env.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, user.OTPPending)
	assert.Empty(t, user.Username)

	_, err = env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    "a@x.com",
		Username: "casey",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
}

// registerActiveUser runs the full invite/redeem flow so the account exists
// the same way production accounts do.
func registerActiveUser(t *testing.T, env *testEnv, username, email, password string, roles model.RoleSet) {
	t.Helper()
	ctx := context.Background()

	var names []string
	for _, r := range roles.Roles() {
		names = append(names, string(r))
	}
	code, err := env.directory.Invite(ctx, adminCaller(), dto.InviteInput{Email: email, Roles: names})
	require.NoError(t, err)

	_, err = env.directory.CompleteRegistration(ctx, dto.RegisterInput{
		Code:     code,
		Email:    email,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
}
