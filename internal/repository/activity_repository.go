package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: tx}
}

func (r *ActivityRepository) Create(log *model.ActivityLog) error {
	return r.DB.Create(log).Error
}

func (r *ActivityRepository) RecentByUser(userID uint, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
