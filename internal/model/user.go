package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// Username is blank on shell rows until redemption, so uniqueness is
	// enforced by the directory service rather than a unique index.
	Username      string    `gorm:"size:50;index" json:"username"`
	Email         string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"size:255" json:"-"`
	FirstName     string    `gorm:"size:100" json:"first_name"`
	MiddleName    *string   `gorm:"size:100" json:"middle_name,omitempty"`
	LastName      string    `gorm:"size:100" json:"last_name"`
	PreferredName *string   `gorm:"size:100" json:"preferred_name,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
	IsInstructor  bool      `json:"is_instructor"`
	IsStudent     bool      `json:"is_student"`
	OTPPending    bool      `gorm:"column:otp_pending" json:"otp_pending"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Roles returns the user's global roles as a set. The three flag columns stay
// as persisted state; this is the only view the services work with.
func (u *User) Roles() RoleSet {
	s := RoleSet{}
	if u.IsAdmin {
		s[RoleAdmin] = struct{}{}
	}
	if u.IsInstructor {
		s[RoleInstructor] = struct{}{}
	}
	if u.IsStudent {
		s[RoleStudent] = struct{}{}
	}
	return s
}

func (u *User) SetRoles(s RoleSet) {
	u.IsAdmin = s.Has(RoleAdmin)
	u.IsInstructor = s.Has(RoleInstructor)
	u.IsStudent = s.Has(RoleStudent)
}

// DisplayName prefers the preferred name over the first name.
func (u *User) DisplayName() string {
	if u.PreferredName != nil && *u.PreferredName != "" {
		return *u.PreferredName
	}
	return u.FirstName
}
