package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// ArticleRepository owns articles and their group associations. Every article
// carries at least one group; writes that would leave an article groupless
// are rejected before touching the store.
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article, groups []string) error
	Update(ctx context.Context, article *model.Article, groups []string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error)
	FindAll(ctx context.Context) ([]*model.Article, error)
	FindByGroup(ctx context.Context, groupName string) ([]*model.Article, error)
	Search(ctx context.Context, level model.ArticleLevel, titleSubstring string) ([]*model.Article, error)
	GroupsOf(ctx context.Context, id uuid.UUID) ([]string, error)
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article, groups []string) error {
	if len(groups) == 0 {
		return apperror.New(apperror.ErrInvalidInput, "article must belong to at least one group")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(article).Error; err != nil {
			return err
		}
		for _, g := range groups {
			if err := tx.Create(&model.ArticleGroup{ArticleID: article.ID, GroupName: g}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateStorageError(err)
	}
	return nil
}

// Update saves the article fields and replaces its group associations in one
// transaction. Zero rows affected means the article does not exist.
func (r *articleRepository) Update(ctx context.Context, article *model.Article, groups []string) (int64, error) {
	if len(groups) == 0 {
		return 0, apperror.New(apperror.ErrInvalidInput, "article must belong to at least one group")
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Article{}).
			Where("id = ?", article.ID).
			Select("*").Omit("id").
			Updates(article)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&model.ArticleGroup{}).Error; err != nil {
			return err
		}
		for _, g := range groups {
			if err := tx.Create(&model.ArticleGroup{ArticleID: article.ID, GroupName: g}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, translateStorageError(err)
	}
	return affected, nil
}

func (r *articleRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&model.ArticleGroup{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Article{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translateStorageError(err)
	}
	return affected, nil
}

func (r *articleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return &article, nil
}

func (r *articleRepository) FindAll(ctx context.Context) ([]*model.Article, error) {
	var articles []*model.Article
	if err := r.db.WithContext(ctx).Order("title").Find(&articles).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return articles, nil
}

func (r *articleRepository) FindByGroup(ctx context.Context, groupName string) ([]*model.Article, error) {
	var articles []*model.Article
	err := r.db.WithContext(ctx).
		Joins("JOIN article_groups ON article_groups.article_id = articles.id").
		Where("article_groups.group_name = ?", groupName).
		Order("articles.title").
		Find(&articles).Error
	if err != nil {
		return nil, translateStorageError(err)
	}
	return articles, nil
}

// Search matches the level exactly and the title with case-insensitive LIKE
// substring semantics. Both sides are lowered so the match behaves the same
// on sqlite and postgres.
func (r *articleRepository) Search(ctx context.Context, level model.ArticleLevel, titleSubstring string) ([]*model.Article, error) {
	var articles []*model.Article
	err := r.db.WithContext(ctx).
		Where("level = ? AND LOWER(title) LIKE ?", level, "%"+strings.ToLower(titleSubstring)+"%").
		Order("title").
		Find(&articles).Error
	if err != nil {
		return nil, translateStorageError(err)
	}
	return articles, nil
}

func (r *articleRepository) GroupsOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&model.ArticleGroup{}).
		Where("article_id = ?", id).
		Order("group_name").
		Pluck("group_name", &names).Error
	if err != nil {
		return nil, translateStorageError(err)
	}
	return names, nil
}
