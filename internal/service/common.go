package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var nowFunc = time.Now

// notFound 将 gorm 的记录不存在转换为业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// duplicate 将唯一索引冲突转换为业务错误
func duplicate(err error, target error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}

func recordActivity(repo *repository.ActivityRepository, userID uint, action model.ActivityAction, courseID *uint, description string, metadata map[string]interface{}) error {
	entry := &model.ActivityLog{
		UserID:      userID,
		Action:      action,
		CourseID:    courseID,
		Description: description,
		CreatedAt:   nowFunc(),
	}
	if len(metadata) > 0 {
		entry.Metadata = datatypes.JSONMap(metadata)
	}
	return repo.Create(entry)
}

func uintPtr(v uint) *uint { return &v }

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = util.DefaultPageSize
	}
	if limit > util.MaxPageSize {
		limit = util.MaxPageSize
	}
	return page, limit
}
