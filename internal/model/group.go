package model

import "github.com/google/uuid"

// Group is a named visibility scope that articles belong to and users receive
// permissions against. A group with no permission rows is unrestricted: any
// caller may read its articles.
type Group struct {
	Name        string `gorm:"size:100;primaryKey" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsSpecial   bool   `json:"is_special"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupPermission grants one user an access role on one group.
type GroupPermission struct {
	UserID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	GroupName  string     `gorm:"size:100;primaryKey" json:"group_name"`
	AccessRole AccessRole `gorm:"size:20;not null" json:"access_role"`
}

func (GroupPermission) TableName() string {
	return "group_permissions"
}
