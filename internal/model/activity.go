package model

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityAction string

const (
	ActionLogin           ActivityAction = "login"
	ActionCourseEnrolled  ActivityAction = "course_enrolled"
	ActionCourseDropped   ActivityAction = "course_dropped"
	ActionCourseCompleted ActivityAction = "course_completed"
	ActionLessonCompleted ActivityAction = "lesson_completed"
	ActionQuizAttempted   ActivityAction = "quiz_attempted"
	ActionQuizPassed      ActivityAction = "quiz_passed"
	ActionProfileUpdated  ActivityAction = "profile_updated"
	ActionCourseCreated   ActivityAction = "course_created"
	ActionLessonCreated   ActivityAction = "lesson_created"
	ActionStudentGraded   ActivityAction = "student_graded"
)

// swagger:model ActivityLog
type ActivityLog struct {
	ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint              `gorm:"index:idx_activity_user_created;not null" json:"userId"`
	Action      ActivityAction    `gorm:"size:50;not null" json:"action"`
	Description string            `gorm:"size:255" json:"description"`
	CourseID    *uint             `gorm:"index" json:"courseId,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"index:idx_activity_user_created" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
