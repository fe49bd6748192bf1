package model

import "time"

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type PriceType string

const (
	PriceFree PriceType = "free"
	PricePaid PriceType = "paid"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonText       LessonType = "text"
	LessonPDF        LessonType = "pdf"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonVideo, LessonText, LessonPDF, LessonQuiz, LessonAssignment:
		return true
	}
	return false
}

// swagger:model Category
type Category struct {
	BaseModel
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

func (Category) TableName() string {
	return "categories"
}

// swagger:model Course
type Course struct {
	BaseModel
	Title            string       `gorm:"size:200;not null" json:"title"`
	Slug             string       `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Description      string       `gorm:"type:text" json:"description"`
	ShortDescription string       `gorm:"size:300" json:"shortDescription"`
	InstructorID     uint         `gorm:"index;not null" json:"instructorId"`
	CategoryID       *uint        `gorm:"index" json:"categoryId,omitempty"`
	Difficulty       Difficulty   `gorm:"size:20;default:'beginner'" json:"difficulty"`
	EstimatedHours   int          `gorm:"default:0" json:"estimatedHours"`
	PriceType        PriceType    `gorm:"size:10;default:'free'" json:"priceType"`
	Price            float64      `gorm:"type:decimal(8,2);default:0" json:"price"`
	Status           CourseStatus `gorm:"size:20;default:'draft';index" json:"status"`
	IsFeatured       bool         `gorm:"default:false" json:"isFeatured"`
	MaxStudents      *int         `json:"maxStudents,omitempty"`
	CoverImage       string       `gorm:"size:255" json:"coverImage"`
	PublishedAt      *time.Time   `json:"publishedAt,omitempty"`

	Modules []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) IsPublished() bool {
	return c.Status == CoursePublished
}

// swagger:model Module
type Module struct {
	BaseModel
	CourseID    uint   `gorm:"uniqueIndex:idx_module_course_order;not null" json:"courseId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order;uniqueIndex:idx_module_course_order;default:0" json:"order"`
	IsPublished bool   `json:"isPublished"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (Module) TableName() string {
	return "course_modules"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	ModuleID        uint       `gorm:"uniqueIndex:idx_lesson_module_order;not null" json:"moduleId"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Type            LessonType `gorm:"size:20;default:'video'" json:"type"`
	Content         string     `gorm:"type:text" json:"content"`
	MediaURL        string     `gorm:"size:500" json:"mediaUrl"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	Order           int        `gorm:"column:sort_order;uniqueIndex:idx_lesson_module_order;default:0" json:"order"`
	IsPreview       bool       `gorm:"default:false" json:"isPreview"`
	IsPublished     bool       `json:"isPublished"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model CourseReview
type CourseReview struct {
	RecordModel
	CourseID   uint   `gorm:"uniqueIndex:idx_review_course_student;not null" json:"courseId"`
	StudentID  uint   `gorm:"uniqueIndex:idx_review_course_student;not null" json:"studentId"`
	Rating     int    `gorm:"not null" json:"rating"`
	Title      string `gorm:"size:200" json:"title"`
	Comment    string `gorm:"type:text" json:"comment"`
	IsApproved bool   `json:"isApproved"`
}

func (CourseReview) TableName() string {
	return "course_reviews"
}
