package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dittygoops/helpdesk-backend/internal/dto"
	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/internal/repository"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// ArticleService gates the article repository on the caller's session. Write
// operations are for admins and instructors; a caller acting as student is
// rejected with ErrForbidden, logged, never fatal. Reads additionally require
// at least viewer permission on every restricted group of the article.
type ArticleService struct {
	articles repository.ArticleRepository
	groups   repository.GroupRepository
	log      logging.Logger
}

func NewArticleService(articles repository.ArticleRepository, groups repository.GroupRepository, log logging.Logger) *ArticleService {
	return &ArticleService{articles: articles, groups: groups, log: log}
}

func (s *ArticleService) requireStaff(ctx context.Context, sess *Session, op string) error {
	if sess == nil || sess.ActiveRole == model.RoleStudent {
		s.log.Warn(ctx, "article operation forbidden", "op", op)
		return apperror.New(apperror.ErrForbidden, op+" requires the admin or instructor role")
	}
	return nil
}

func articleFromInput(input dto.ArticleInput) (*model.Article, error) {
	level, err := model.ParseArticleLevel(input.Level)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, err.Error())
	}
	return &model.Article{
		Level:            level,
		Title:            input.Title,
		ShortDescription: input.ShortDescription,
		Keywords:         model.StringList(input.Keywords),
		Body:             input.Body,
		ReferenceLinks:   model.StringList(input.ReferenceLinks),
	}, nil
}

func (s *ArticleService) Create(ctx context.Context, sess *Session, input dto.ArticleInput) (*model.Article, error) {
	if err := s.requireStaff(ctx, sess, "create article"); err != nil {
		return nil, err
	}
	if err := dto.Validate(input); err != nil {
		return nil, err
	}
	article, err := articleFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.articles.Create(ctx, article, input.Groups); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "created article", "article_id", article.ID, "title", article.Title)
	return article, nil
}

func (s *ArticleService) Update(ctx context.Context, sess *Session, id uuid.UUID, input dto.ArticleInput) error {
	if err := s.requireStaff(ctx, sess, "update article"); err != nil {
		return err
	}
	if err := dto.Validate(input); err != nil {
		return err
	}
	article, err := articleFromInput(input)
	if err != nil {
		return err
	}
	article.ID = id
	affected, err := s.articles.Update(ctx, article, input.Groups)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Warn(ctx, "article update affected no rows", "article_id", id)
		return apperror.ErrNotFound
	}
	return nil
}

func (s *ArticleService) Delete(ctx context.Context, sess *Session, id uuid.UUID) error {
	if err := s.requireStaff(ctx, sess, "delete article"); err != nil {
		return err
	}
	affected, err := s.articles.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Warn(ctx, "article delete affected no rows", "article_id", id)
		return apperror.ErrNotFound
	}
	s.log.Info(ctx, "deleted article", "article_id", id)
	return nil
}

// Get returns one article if the caller may read it.
func (s *ArticleService) Get(ctx context.Context, sess *Session, id uuid.UUID) (*model.Article, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readable, err := s.canRead(ctx, sess, article.ID)
	if err != nil {
		return nil, err
	}
	if !readable {
		s.log.Warn(ctx, "article read forbidden", "article_id", id)
		return nil, apperror.New(apperror.ErrForbidden, "no permission on the article's groups")
	}
	return article, nil
}

// ListAll returns every article the caller may read.
func (s *ArticleService) ListAll(ctx context.Context, sess *Session) ([]*model.Article, error) {
	articles, err := s.articles.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.filterReadable(ctx, sess, articles)
}

// ListByGroup returns the readable articles associated with groupName.
func (s *ArticleService) ListByGroup(ctx context.Context, sess *Session, groupName string) ([]*model.Article, error) {
	articles, err := s.articles.FindByGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}
	return s.filterReadable(ctx, sess, articles)
}

// Search filters by exact level and title substring, then by read
// visibility.
func (s *ArticleService) Search(ctx context.Context, sess *Session, level model.ArticleLevel, titleSubstring string) ([]*model.Article, error) {
	articles, err := s.articles.Search(ctx, level, titleSubstring)
	if err != nil {
		return nil, err
	}
	return s.filterReadable(ctx, sess, articles)
}

// GroupsOf exposes the group names an article belongs to.
func (s *ArticleService) GroupsOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	return s.articles.GroupsOf(ctx, id)
}

func (s *ArticleService) filterReadable(ctx context.Context, sess *Session, articles []*model.Article) ([]*model.Article, error) {
	out := make([]*model.Article, 0, len(articles))
	for _, a := range articles {
		readable, err := s.canRead(ctx, sess, a.ID)
		if err != nil {
			return nil, err
		}
		if readable {
			out = append(out, a)
		}
	}
	return out, nil
}

// canRead checks every group of the article: the group must either be
// unrestricted (no permission rows at all) or grant the caller at least
// viewer access.
func (s *ArticleService) canRead(ctx context.Context, sess *Session, articleID uuid.UUID) (bool, error) {
	if sess == nil {
		return false, nil
	}
	groups, err := s.articles.GroupsOf(ctx, articleID)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		restricted, err := s.groups.IsRestricted(ctx, g)
		if err != nil {
			return false, err
		}
		if !restricted {
			continue
		}
		perm, err := s.groups.PermissionFor(ctx, sess.UserID, g)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if !perm.AccessRole.AtLeast(model.AccessViewer) {
			return false, nil
		}
	}
	return true, nil
}

// CreateGroup registers a new visibility scope.
func (s *ArticleService) CreateGroup(ctx context.Context, sess *Session, input dto.GroupInput) (*model.Group, error) {
	if err := s.requireStaff(ctx, sess, "create group"); err != nil {
		return nil, err
	}
	if err := dto.Validate(input); err != nil {
		return nil, err
	}
	group := &model.Group{Name: input.Name, Description: input.Description, IsSpecial: input.IsSpecial}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes the group and cascades to its article associations and
// permission rows.
func (s *ArticleService) DeleteGroup(ctx context.Context, sess *Session, name string) error {
	if err := s.requireStaff(ctx, sess, "delete group"); err != nil {
		return err
	}
	affected, err := s.groups.Delete(ctx, name)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.log.Warn(ctx, "group delete affected no rows", "group", name)
		return apperror.ErrNotFound
	}
	return nil
}

func (s *ArticleService) ListGroups(ctx context.Context) ([]*model.Group, error) {
	return s.groups.FindAll(ctx)
}

// Grant gives userID an access role on a group. Only admins manage
// permissions.
func (s *ArticleService) Grant(ctx context.Context, sess *Session, userID uuid.UUID, groupName string, role model.AccessRole) error {
	if sess == nil || sess.ActiveRole != model.RoleAdmin {
		s.log.Warn(ctx, "grant forbidden")
		return apperror.New(apperror.ErrForbidden, "grant requires the admin role")
	}
	if _, err := s.groups.FindByName(ctx, groupName); err != nil {
		return err
	}
	return s.groups.Grant(ctx, userID, groupName, role)
}

func (s *ArticleService) Revoke(ctx context.Context, sess *Session, userID uuid.UUID, groupName string) error {
	if sess == nil || sess.ActiveRole != model.RoleAdmin {
		s.log.Warn(ctx, "revoke forbidden")
		return apperror.New(apperror.ErrForbidden, "revoke requires the admin role")
	}
	affected, err := s.groups.Revoke(ctx, userID, groupName)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// PermissionsForUser lists the access roles a user holds, mostly so admins
// can audit and tests can observe cascades.
func (s *ArticleService) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.GroupPermission, error) {
	return s.groups.PermissionsForUser(ctx, userID)
}
