package model

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArticleLevel string

const (
	LevelBeginner     ArticleLevel = "beginner"
	LevelIntermediate ArticleLevel = "intermediate"
	LevelAdvanced     ArticleLevel = "advanced"
	LevelExpert       ArticleLevel = "expert"
)

func ParseArticleLevel(s string) (ArticleLevel, error) {
	switch ArticleLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelBeginner:
		return LevelBeginner, nil
	case LevelIntermediate:
		return LevelIntermediate, nil
	case LevelAdvanced:
		return LevelAdvanced, nil
	case LevelExpert:
		return LevelExpert, nil
	}
	return "", fmt.Errorf("unknown article level %q", s)
}

// StringList is an ordered sequence of strings stored as one comma-delimited
// text column. The encoding is lossless for ordering and for empty entries
// left by trailing delimiters; those are preserved, not trimmed. An empty
// list is stored as NULL.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return strings.Join(l, ","), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	*l = strings.Split(s, ",")
	return nil
}

// Encoded returns the column representation, shared with the backup writer.
func (l StringList) Encoded() string {
	return strings.Join(l, ",")
}

type Article struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Level            ArticleLevel `gorm:"size:20;not null" json:"level"`
	Title            string       `gorm:"size:255;not null" json:"title"`
	ShortDescription string       `gorm:"type:text" json:"short_description"`
	Keywords         StringList   `gorm:"type:text" json:"keywords"`
	Body             string       `gorm:"type:text" json:"body"`
	ReferenceLinks   StringList   `gorm:"type:text" json:"reference_links"`
}

func (Article) TableName() string {
	return "articles"
}

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ArticleGroup associates an article with a group. Every article belongs to
// at least one group; the legacy single-groupId column is gone, this join
// table is the only association.
type ArticleGroup struct {
	ArticleID uuid.UUID `gorm:"type:uuid;primaryKey" json:"article_id"`
	GroupName string    `gorm:"size:100;primaryKey" json:"group_name"`
}

func (ArticleGroup) TableName() string {
	return "article_groups"
}
