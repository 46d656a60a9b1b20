package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

func TestOTPExpiryRoundTrip(t *testing.T) {
	var otp OneTimePassword
	when := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	otp.SetExpiry(when)

	parsed, err := otp.Expiry()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(when))
}

func TestOTPExpiryCorrupt(t *testing.T) {
	otp := OneTimePassword{Code: "123456", ExpiresAt: "not-a-timestamp"}
	_, err := otp.Expiry()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrCorruptOTPRecord)
}
