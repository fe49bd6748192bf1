package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentSuspended EnrollmentStatus = "suspended"
)

// swagger:model Enrollment
type Enrollment struct {
	RecordModel
	StudentID          uint             `gorm:"uniqueIndex:idx_enrollment_student_course;not null" json:"studentId"`
	CourseID           uint             `gorm:"uniqueIndex:idx_enrollment_student_course;index;not null" json:"courseId"`
	Status             EnrollmentStatus `gorm:"size:20;default:'active';index" json:"status"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	StartedAt          *time.Time       `json:"startedAt,omitempty"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
	LastAccessed       *time.Time       `json:"lastAccessed,omitempty"`
	ProgressPercentage float64          `gorm:"type:decimal(5,2);default:0" json:"progressPercentage"`
	IsActive           bool             `json:"isActive"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// AllowsProgress 已退课或被暂停的选课不再记录学习进度
func (e *Enrollment) AllowsProgress() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}

// swagger:model LessonProgress
type LessonProgress struct {
	RecordModel
	EnrollmentID         uint       `gorm:"uniqueIndex:idx_progress_enrollment_lesson;not null" json:"enrollmentId"`
	LessonID             uint       `gorm:"uniqueIndex:idx_progress_enrollment_lesson;not null" json:"lessonId"`
	IsCompleted          bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	TimeSpentMinutes     int        `gorm:"default:0" json:"timeSpentMinutes"`
	VideoProgressSeconds int        `gorm:"default:0" json:"videoProgressSeconds"`
	FirstAccessed        time.Time  `json:"firstAccessed"`
	LastAccessed         time.Time  `json:"lastAccessed"`
	AccessCount          int        `gorm:"default:1" json:"accessCount"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// swagger:model ModuleProgress
type ModuleProgress struct {
	RecordModel
	EnrollmentID       uint       `gorm:"uniqueIndex:idx_module_progress_enrollment_module;not null" json:"enrollmentId"`
	ModuleID           uint       `gorm:"uniqueIndex:idx_module_progress_enrollment_module;not null" json:"moduleId"`
	IsCompleted        bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	ProgressPercentage float64    `gorm:"type:decimal(5,2);default:0" json:"progressPercentage"`
}

func (ModuleProgress) TableName() string {
	return "module_progress"
}

// ProgressPercentage 完成数/总数*100，总数为 0 时返回 0，结果不超过 100
func ProgressPercentage(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(completed) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
