package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dittygoops/helpdesk-backend/internal/model"
)

// GroupRepository owns groups and the per-user access roles on them.
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, name string) (int64, error)
	FindByName(ctx context.Context, name string) (*model.Group, error)
	FindAll(ctx context.Context) ([]*model.Group, error)

	Grant(ctx context.Context, userID uuid.UUID, groupName string, role model.AccessRole) error
	Revoke(ctx context.Context, userID uuid.UUID, groupName string) (int64, error)
	PermissionFor(ctx context.Context, userID uuid.UUID, groupName string) (*model.GroupPermission, error)
	PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.GroupPermission, error)
	IsRestricted(ctx context.Context, groupName string) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return translateStorageError(err)
	}
	return nil
}

// Delete removes the group together with its article associations and
// permission rows. Orphaned permission rows are a bug, so the cleanup runs in
// the same transaction.
func (r *groupRepository) Delete(ctx context.Context, name string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", name).Delete(&model.ArticleGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_name = ?", name).Delete(&model.GroupPermission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Group{}, "name = ?", name)
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

func (r *groupRepository) FindByName(ctx context.Context, name string) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).First(&group, "name = ?", name).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return &group, nil
}

func (r *groupRepository) FindAll(ctx context.Context) ([]*model.Group, error) {
	var groups []*model.Group
	if err := r.db.WithContext(ctx).Order("name").Find(&groups).Error; err != nil {
		return nil, translateStorageError(err)
	}
	return groups, nil
}

// Grant inserts or replaces the user's access role on the group.
func (r *groupRepository) Grant(ctx context.Context, userID uuid.UUID, groupName string, role model.AccessRole) error {
	perm := &model.GroupPermission{UserID: userID, GroupName: groupName, AccessRole: role}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_role"}),
		}).
		Create(perm).Error
	if err != nil {
		return translateStorageError(err)
	}
	return nil
}

func (r *groupRepository) Revoke(ctx context.Context, userID uuid.UUID, groupName string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND group_name = ?", userID, groupName).
		Delete(&model.GroupPermission{})
	if res.Error != nil {
		return 0, translateStorageError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *groupRepository) PermissionFor(ctx context.Context, userID uuid.UUID, groupName string) (*model.GroupPermission, error) {
	var perm model.GroupPermission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_name = ?", userID, groupName).
		First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, translateStorageError(err)
		}
		return nil, err
	}
	return &perm, nil
}

func (r *groupRepository) PermissionsForUser(ctx context.Context, userID uuid.UUID) ([]*model.GroupPermission, error) {
	var perms []*model.GroupPermission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("group_name").
		Find(&perms).Error
	if err != nil {
		return nil, translateStorageError(err)
	}
	return perms, nil
}

// IsRestricted reports whether any permission row exists for the group. A
// group without rows is open: everyone may read its articles.
func (r *groupRepository) IsRestricted(ctx context.Context, groupName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.GroupPermission{}).
		Where("group_name = ?", groupName).
		Count(&count).Error
	if err != nil {
		return false, translateStorageError(err)
	}
	return count > 0, nil
}
