package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

func TestOTPIssueFormat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.otp.Issue(ctx, model.NewRoleSet(model.RoleInstructor))
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "non-digit %q in code", c)
	}
}

func TestOTPIssueRejectsEmptyRoleSet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.otp.Issue(context.Background(), model.RoleSet{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestOTPValidUntilExpiryThenPermanentlyInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.otp.Issue(ctx, model.NewRoleSet(model.RoleStudent))
	require.NoError(t, err)

	ok, err := env.otp.Validate(ctx, code)
	require.NoError(t, err)
	assert.True(t, ok)

	env.clock.Advance(5*time.Minute + time.Second)

	ok, err = env.otp.Validate(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expiry is idempotent: still invalid however often it is asked.
	ok, err = env.otp.Validate(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)

	expired, err := env.otp.IsExpired(ctx, code)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestOTPMissingCodeIsExpired(t *testing.T) {
	env := newTestEnv(t)

	expired, err := env.otp.IsExpired(context.Background(), "999999")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestOTPCorruptRecordTreatedAsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&model.OneTimePassword{Code: "424242", IsStudent: true, ExpiresAt: "garbage"}).Error)

	ok, err := env.otp.Validate(ctx, "424242")
	require.NoError(t, err)
	assert.False(t, ok)

	expired, err := env.otp.IsExpired(ctx, "424242")
	assert.True(t, expired)
	assert.ErrorIs(t, err, apperror.ErrCorruptOTPRecord)
}

func TestOTPRedeemTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.otp.Issue(ctx, model.NewRoleSet(model.RoleStudent))
	require.NoError(t, err)

	require.NoError(t, env.otp.Redeem(ctx, code))
	assert.ErrorIs(t, env.otp.Redeem(ctx, code), apperror.ErrNotFound)
}

func TestOTPRedeemLeavesCollidingCodeLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older := &model.OneTimePassword{Code: "424242", IsStudent: true}
	older.SetExpiry(env.clock.Now().Add(time.Hour))
	require.NoError(t, env.db.Create(older).Error)
	newer := &model.OneTimePassword{Code: "424242", IsInstructor: true}
	newer.SetExpiry(env.clock.Now().Add(time.Hour))
	require.NoError(t, env.db.Create(newer).Error)

	require.NoError(t, env.otp.Redeem(ctx, "424242"))

	// Only the newest row was consumed; the colliding invitation survives.
	ok, err := env.otp.Validate(ctx, "424242")
	require.NoError(t, err)
	assert.True(t, ok)

	remaining, err := env.otp.Lookup(ctx, "424242")
	require.NoError(t, err)
	assert.Equal(t, older.ID, remaining.ID)
}

func TestOTPPurgeExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.otp.Issue(ctx, model.NewRoleSet(model.RoleStudent))
	require.NoError(t, err)

	env.clock.Advance(4 * time.Minute)
	live, err := env.otp.Issue(ctx, model.NewRoleSet(model.RoleStudent))
	require.NoError(t, err)
	env.clock.Advance(2 * time.Minute)

	purged, err := env.otp.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	ok, err := env.otp.Validate(ctx, live)
	require.NoError(t, err)
	assert.True(t, ok)
}
