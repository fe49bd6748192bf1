package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	ActivityRepo *repository.ActivityRepository
	Cfg          *config.Config
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, activityRepo *repository.ActivityRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:           db,
		UserRepo:     userRepo,
		ActivityRepo: activityRepo,
		Cfg:          cfg,
	}
}

// RegisterInput 注册参数
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.UserRole
}

// Register 在同一事务中创建用户和用户资料
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name and email are required", util.ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", util.ErrValidation, minPasswordLength)
	}
	if input.Role == "" {
		input.Role = model.Student
	}
	// 管理员不能自助注册
	if input.Role != model.Student && input.Role != model.Instructor {
		return nil, fmt.Errorf("%w: role %q cannot be registered", util.ErrValidation, input.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashedPassword),
		Role:     input.Role,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.UserRepo.WithTx(tx)
		if _, err := repo.FindByEmail(user.Email); err == nil {
			return util.ErrEmailRegistered
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := repo.Create(user); err != nil {
			return duplicate(err, util.ErrEmailRegistered)
		}
		profile := &model.UserProfile{UserID: user.ID}
		if err := repo.CreateProfile(profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("User registered", zap.Uint("userId", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login 校验密码并签发 JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	db := s.DB.WithContext(ctx)
	user, err := s.UserRepo.WithTx(db).FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return "", nil, util.ErrUserDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	now := nowFunc()
	if err := s.UserRepo.WithTx(db).TouchLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userId", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	if err := recordActivity(s.ActivityRepo.WithTx(db), user.ID, model.ActionLogin, nil, "", nil); err != nil {
		logger.Log.Warn("Failed to record login activity", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, err := s.UserRepo.WithTx(s.DB.WithContext(c.Request.Context())).FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
