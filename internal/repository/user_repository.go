package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) CreateProfile(profile *model.UserProfile) error {
	return r.DB.Create(profile).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.Preload("Profile").First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Omit("Profile").Save(user).Error
}

func (r *UserRepository) UpdateProfile(profile *model.UserProfile) error {
	return r.DB.Save(profile).Error
}

func (r *UserRepository) TouchLastLogin(userID uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).
		Error
}

// UserFilter 管理员用户列表筛选条件
type UserFilter struct {
	Role     model.UserRole
	Disabled *bool
	Search   string
}

func (r *UserRepository) List(filter UserFilter, page, limit int) ([]model.User, int64, error) {
	query := r.DB.Model(&model.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Disabled != nil {
		query = query.Where("disabled = ?", *filter.Disabled)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepository) SetDisabled(userID uint, disabled bool) error {
	result := r.DB.Model(&model.User{}).Where("id = ?", userID).Update("disabled", disabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastSeen(userID uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", at).
		Error
}
