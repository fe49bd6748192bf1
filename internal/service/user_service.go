package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 处理用户资料相关的业务逻辑
type UserService struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	ActivityRepo *repository.ActivityRepository
}

func NewUserService(db *gorm.DB, userRepo *repository.UserRepository, activityRepo *repository.ActivityRepository) *UserService {
	return &UserService{
		DB:           db,
		UserRepo:     userRepo,
		ActivityRepo: activityRepo,
	}
}

// ProfileInput 资料更新参数，nil 字段保持不变
type ProfileInput struct {
	Name              *string `json:"name"`
	Avatar            *string `json:"avatar"`
	Bio               *string `json:"bio"`
	PhoneNumber       *string `json:"phoneNumber"`
	Location          *string `json:"location"`
	Timezone          *string `json:"timezone"`
	WebsiteURL        *string `json:"websiteUrl"`
	GithubURL         *string `json:"githubUrl"`
	StudentNumber     *string `json:"studentNumber"`
	Department        *string `json:"department"`
	Specialization    *string `json:"specialization"`
	YearsOfExperience *int    `json:"yearsOfExperience"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.WithTx(s.DB.WithContext(ctx)).FindByID(userID)
	if err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile 学生字段只对学生生效，讲师字段只对讲师生效
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*model.User, error) {
	if input.YearsOfExperience != nil && *input.YearsOfExperience < 0 {
		return nil, fmt.Errorf("%w: years of experience must not be negative", util.ErrValidation)
	}

	var user *model.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.UserRepo.WithTx(tx)
		var err error
		user, err = repo.FindByID(userID)
		if err != nil {
			return notFound(err, util.ErrUserNotFound)
		}

		setString(&user.Name, input.Name)
		setString(&user.Avatar, input.Avatar)
		setString(&user.Bio, input.Bio)
		setString(&user.PhoneNumber, input.PhoneNumber)
		if err := repo.Update(user); err != nil {
			return err
		}

		profile := user.Profile
		if profile == nil {
			profile = &model.UserProfile{UserID: user.ID}
		}
		setString(&profile.Location, input.Location)
		setString(&profile.Timezone, input.Timezone)
		setString(&profile.WebsiteURL, input.WebsiteURL)
		setString(&profile.GithubURL, input.GithubURL)
		switch user.Role {
		case model.Student:
			if input.StudentNumber != nil {
				number := *input.StudentNumber
				profile.StudentNumber = &number
				if number == "" {
					profile.StudentNumber = nil
				}
			}
		case model.Instructor:
			setString(&profile.Department, input.Department)
			setString(&profile.Specialization, input.Specialization)
			if input.YearsOfExperience != nil {
				profile.YearsOfExperience = input.YearsOfExperience
			}
		}
		if err := repo.UpdateProfile(profile); err != nil {
			return duplicate(err, fmt.Errorf("%w: student number already used", util.ErrConflict))
		}
		user.Profile = profile
		return recordActivity(s.ActivityRepo.WithTx(tx), user.ID, model.ActionProfileUpdated, nil, "", nil)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 修改密码需校验旧密码
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", util.ErrValidation, minPasswordLength)
	}
	repo := s.UserRepo.WithTx(s.DB.WithContext(ctx))
	user, err := repo.FindByID(userID)
	if err != nil {
		return notFound(err, util.ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.ErrInvalidCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return repo.Update(user)
}

// ListUsers 管理员分页查询用户
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) (*util.PageResponse, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.UserRepo.WithTx(s.DB.WithContext(ctx)).List(filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: users, Total: total, Page: page, Limit: limit}, nil
}

// SetDisabled 禁用或启用用户，管理员不能禁用自己
func (s *UserService) SetDisabled(ctx context.Context, adminID, userID uint, disabled bool) error {
	if adminID == userID && disabled {
		return fmt.Errorf("%w: cannot disable yourself", util.ErrValidation)
	}
	err := s.UserRepo.WithTx(s.DB.WithContext(ctx)).SetDisabled(userID, disabled)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	logger.Log.Info("User status changed",
		zap.Uint("adminId", adminID),
		zap.Uint("userId", userID),
		zap.Bool("disabled", disabled),
	)
	return nil
}
