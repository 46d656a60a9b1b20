package model

import (
	"time"

	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// OneTimePassword is a single-use invitation or reset code. Codes are not
// unique across time; redemption deletes the row, expiry leaves it to be
// ignored and purged.
//
// ExpiresAt is persisted as RFC3339 text. A row whose timestamp no longer
// parses is corrupt and must be treated as expired, never as a crash.
type OneTimePassword struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"size:6;index;not null" json:"code"`
	IsAdmin      bool      `json:"is_admin"`
	IsInstructor bool      `json:"is_instructor"`
	IsStudent    bool      `json:"is_student"`
	ExpiresAt    string    `gorm:"size:64;not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (OneTimePassword) TableName() string {
	return "otp"
}

// Roles returns the role subset the code grants on redemption.
func (o *OneTimePassword) Roles() RoleSet {
	s := RoleSet{}
	if o.IsAdmin {
		s[RoleAdmin] = struct{}{}
	}
	if o.IsInstructor {
		s[RoleInstructor] = struct{}{}
	}
	if o.IsStudent {
		s[RoleStudent] = struct{}{}
	}
	return s
}

func (o *OneTimePassword) SetRoles(s RoleSet) {
	o.IsAdmin = s.Has(RoleAdmin)
	o.IsInstructor = s.Has(RoleInstructor)
	o.IsStudent = s.Has(RoleStudent)
}

// Expiry parses the stored timestamp. An unparsable value is reported as
// ErrCorruptOTPRecord.
func (o *OneTimePassword) Expiry() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, o.ExpiresAt)
	if err != nil {
		return time.Time{}, apperror.New(apperror.ErrCorruptOTPRecord, "otp "+o.Code+": bad expiry timestamp")
	}
	return t, nil
}

func (o *OneTimePassword) SetExpiry(t time.Time) {
	o.ExpiresAt = t.Format(time.RFC3339Nano)
}
