package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/tracing"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ActivityRepo   *repository.ActivityRepository
	Storage        *StorageService
	Stats          *StatsCache
}

func NewCatalogService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	activityRepo *repository.ActivityRepository,
	storage *StorageService,
	stats *StatsCache,
) *CatalogService {
	return &CatalogService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ActivityRepo:   activityRepo,
		Storage:        storage,
		Stats:          stats,
	}
}

// CourseInput 创建课程参数
type CourseInput struct {
	Title            string           `json:"title" binding:"required"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"shortDescription"`
	CategoryID       *uint            `json:"categoryId"`
	Difficulty       model.Difficulty `json:"difficulty"`
	EstimatedHours   int              `json:"estimatedHours"`
	PriceType        model.PriceType  `json:"priceType"`
	Price            float64          `json:"price"`
	MaxStudents      *int             `json:"maxStudents"`
}

// ModuleInput 创建模块参数
type ModuleInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsPublished *bool  `json:"isPublished"`
}

// LessonInput 创建课时参数
type LessonInput struct {
	Title           string           `json:"title" binding:"required"`
	Type            model.LessonType `json:"type"`
	Content         string           `json:"content"`
	MediaURL        string           `json:"mediaUrl"`
	DurationMinutes *int             `json:"durationMinutes"`
	Order           int              `json:"order"`
	IsPreview       bool             `json:"isPreview"`
	IsPublished     *bool            `json:"isPublished"`
}

// ReviewInput 课程评价参数
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// CourseDetail 课程详情
type CourseDetail struct {
	*model.Course
	Stats *repository.CourseStats `json:"stats"`
}

// Slugify 生成 URL 友好的标识，仅保留字母数字
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *CatalogService) uniqueSlug(repo *repository.CourseRepository, title string) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		slug = "course"
	}
	exists, err := repo.SlugExists(slug)
	if err != nil {
		return "", err
	}
	if exists {
		slug = slug + "-" + uuid.NewString()[:8]
	}
	return slug, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", util.ErrValidation)
	}
	category := &model.Category{Name: name, Slug: Slugify(name), Description: description}
	if err := s.CourseRepo.WithTx(s.DB.WithContext(ctx)).CreateCategory(category); err != nil {
		return nil, duplicate(err, fmt.Errorf("%w: category already exists", util.ErrConflict))
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.CourseRepo.WithTx(s.DB.WithContext(ctx)).ListCategories()
}

// CreateCourse 以草稿状态创建课程
func (s *CatalogService) CreateCourse(ctx context.Context, instructorID uint, input CourseInput) (*model.Course, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", util.ErrValidation)
	}
	if input.PriceType == "" {
		input.PriceType = model.PriceFree
	}
	if input.Difficulty == "" {
		input.Difficulty = model.Beginner
	}

	var course *model.Course
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		if input.CategoryID != nil {
			if _, err := repo.FindCategory(*input.CategoryID); err != nil {
				return notFound(err, util.ErrCategoryNotFound)
			}
		}
		slug, err := s.uniqueSlug(repo, input.Title)
		if err != nil {
			return err
		}
		course = &model.Course{
			Title:            input.Title,
			Slug:             slug,
			Description:      input.Description,
			ShortDescription: input.ShortDescription,
			InstructorID:     instructorID,
			CategoryID:       input.CategoryID,
			Difficulty:       input.Difficulty,
			EstimatedHours:   input.EstimatedHours,
			PriceType:        input.PriceType,
			Price:            input.Price,
			Status:           model.CourseDraft,
			MaxStudents:      input.MaxStudents,
		}
		if err := repo.Create(course); err != nil {
			return err
		}
		return recordActivity(s.ActivityRepo.WithTx(tx), instructorID, model.ActionCourseCreated, uintPtr(course.ID), course.Title, nil)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Course created", zap.Uint("courseId", course.ID), zap.Uint("instructorId", instructorID))
	return course, nil
}

// PublishCourse 发布课程，首次发布记录时间
func (s *CatalogService) PublishCourse(ctx context.Context, instructorID, courseID uint) (*model.Course, error) {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	course, err := ownedCourse(repo, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status == model.CourseArchived {
		return nil, util.ErrCourseNotEditable
	}
	if course.Status != model.CoursePublished {
		now := nowFunc()
		course.Status = model.CoursePublished
		if course.PublishedAt == nil {
			course.PublishedAt = &now
		}
		if err := repo.Update(course); err != nil {
			return nil, err
		}
	}
	return course, nil
}

// ArchiveCourse 归档课程，不再接受新的选课
func (s *CatalogService) ArchiveCourse(ctx context.Context, instructorID, courseID uint) (*model.Course, error) {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	course, err := ownedCourse(repo, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	course.Status = model.CourseArchived
	if err := repo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

// AddModule 同一课程内模块顺序唯一
func (s *CatalogService) AddModule(ctx context.Context, instructorID, courseID uint, input ModuleInput) (*model.Module, error) {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	course, err := ownedCourse(repo, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status == model.CourseArchived {
		return nil, util.ErrCourseNotEditable
	}

	module := &model.Module{
		CourseID:    courseID,
		Title:       input.Title,
		Description: input.Description,
		Order:       input.Order,
		IsPublished: input.IsPublished == nil || *input.IsPublished,
	}
	if err := repo.CreateModule(module); err != nil {
		return nil, duplicate(err, util.ErrDuplicateOrder)
	}
	return module, nil
}

// AddLesson 同一模块内课时顺序唯一
func (s *CatalogService) AddLesson(ctx context.Context, instructorID, moduleID uint, input LessonInput) (*model.Lesson, error) {
	if input.Type == "" {
		input.Type = model.LessonVideo
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown lesson type %q", util.ErrValidation, input.Type)
	}
	if input.DurationMinutes != nil && *input.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", util.ErrValidation)
	}

	var (
		lesson *model.Lesson
		module *model.Module
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		var err error
		module, err = repo.FindModule(moduleID)
		if err != nil {
			return notFound(err, util.ErrModuleNotFound)
		}
		course, err := ownedCourse(repo, instructorID, module.CourseID)
		if err != nil {
			return err
		}
		if course.Status == model.CourseArchived {
			return util.ErrCourseNotEditable
		}

		lesson = &model.Lesson{
			ModuleID:        moduleID,
			Title:           input.Title,
			Type:            input.Type,
			Content:         input.Content,
			MediaURL:        input.MediaURL,
			DurationMinutes: input.DurationMinutes,
			Order:           input.Order,
			IsPreview:       input.IsPreview,
			IsPublished:     input.IsPublished == nil || *input.IsPublished,
		}
		if err := repo.CreateLesson(lesson); err != nil {
			return duplicate(err, util.ErrDuplicateOrder)
		}
		return recordActivity(s.ActivityRepo.WithTx(tx), instructorID, model.ActionLessonCreated, uintPtr(course.ID), lesson.Title, nil)
	})
	if err != nil {
		return nil, err
	}
	s.Stats.Invalidate(ctx, module.CourseID)
	return lesson, nil
}

// GetCourse 课程详情，包含按顺序排列的模块、课时以及统计
func (s *CatalogService) GetCourse(ctx context.Context, courseID uint) (*CourseDetail, error) {
	course, err := s.CourseRepo.WithTx(s.DB.WithContext(ctx)).FindWithContent(courseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	stats, err := s.CourseStats(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: course, Stats: stats}, nil
}

func (s *CatalogService) ListPublishedCourses(ctx context.Context, filter repository.CourseFilter, page, limit int) (*util.PageResponse, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.CourseRepo.WithTx(s.DB.WithContext(ctx)).ListPublished(filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: items, Total: total, Page: page, Limit: limit}, nil
}

// CourseStats 聚合统计，优先读取缓存
func (s *CatalogService) CourseStats(ctx context.Context, courseID uint) (*repository.CourseStats, error) {
	ctx, span := tracing.Start(ctx, "CatalogService.CourseStats")
	defer span.End()

	if stats, ok := s.Stats.Get(ctx, courseID); ok {
		return stats, nil
	}
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	if _, err := repo.FindByID(courseID); err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	stats, err := repo.Stats(courseID)
	if err != nil {
		return nil, fmt.Errorf("course stats: %w", err)
	}
	s.Stats.Set(ctx, courseID, stats)
	return stats, nil
}

// AddReview 已选课学生评价课程，每人一次
func (s *CatalogService) AddReview(ctx context.Context, studentID, courseID uint, input ReviewInput) (*model.CourseReview, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, util.ErrInvalidRating
	}

	db := s.DB.WithContext(ctx)
	if _, err := s.EnrollmentRepo.WithTx(db).FindByStudentCourse(studentID, courseID); err != nil {
		return nil, notFound(err, util.ErrEnrollmentNotFound)
	}

	review := &model.CourseReview{
		CourseID:   courseID,
		StudentID:  studentID,
		Rating:     input.Rating,
		Title:      input.Title,
		Comment:    input.Comment,
		IsApproved: true,
	}
	if err := s.CourseRepo.WithTx(db).CreateReview(review); err != nil {
		return nil, duplicate(err, util.ErrDuplicateReview)
	}
	s.Stats.Invalidate(ctx, courseID)
	return review, nil
}

func (s *CatalogService) ListReviews(ctx context.Context, courseID uint) ([]model.CourseReview, error) {
	return s.CourseRepo.WithTx(s.DB.WithContext(ctx)).ListReviews(courseID)
}

// AttachLessonMedia 校验文件类型后上传并更新课时媒体地址
func (s *CatalogService) AttachLessonMedia(ctx context.Context, instructorID, lessonID uint, filename string, reader io.Reader, size int64) (*model.Lesson, error) {
	ctx, span := tracing.Start(ctx, "CatalogService.AttachLessonMedia")
	defer span.End()

	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	lesson, err := repo.FindLesson(lessonID)
	if err != nil {
		return nil, notFound(err, util.ErrLessonNotFound)
	}
	module, err := repo.FindModule(lesson.ModuleID)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	if _, err := ownedCourse(repo, instructorID, module.CourseID); err != nil {
		return nil, err
	}

	mimeType, content, err := util.ValidateMimeType(reader, util.LessonMediaTypes)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileType) {
			return nil, err
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	key := fmt.Sprintf("lessons/%d/%s%s", lessonID, uuid.NewString(), util.SafeExt(filename))
	url, err := s.Storage.Upload(ctx, key, content, size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("upload lesson media: %w", err)
	}

	lesson.MediaURL = url
	if err := repo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	logger.Log.Info("Lesson media attached",
		zap.Uint("lessonId", lessonID),
		zap.String("mime", mimeType),
		zap.String("key", key),
	)
	return lesson, nil
}
